package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Request body schemas. Required string fields must be non-empty.
const (
	chatSchema = `{
		"type": "object",
		"required": ["message"],
		"properties": {
			"message": {"type": "string", "minLength": 1},
			"chatId":  {"type": "string"},
			"model":   {"type": "string"},
			"userId":  {"type": "string"},
			"context": {"type": "array", "items": {"type": "integer"}}
		}
	}`

	courseAssistantSchema = `{
		"type": "object",
		"required": ["idea", "guide"],
		"properties": {
			"idea":   {"type": "string", "minLength": 1},
			"guide":  {"type": "string", "minLength": 1},
			"model":  {"type": "string"},
			"chatId": {"type": "string"}
		}
	}`

	generateCourseSchema = `{
		"type": "object",
		"required": ["prompt"],
		"properties": {
			"prompt":       {"type": "string", "minLength": 1},
			"provider":     {"type": "string", "enum": ["openai", "gemini"]},
			"model":        {"type": "string"},
			"instructorId": {"type": ["string", "null"]}
		}
	}`

	convertSchema = `{
		"type": "object",
		"required": ["chatId", "assistantMessage"],
		"properties": {
			"chatId":           {"type": "string", "minLength": 1},
			"assistantMessage": {"type": "string", "minLength": 1},
			"userPrompt":       {"type": "string"},
			"instructorId":     {"type": ["string", "null"]},
			"provider":         {"type": "string", "enum": ["openai", "gemini"]},
			"model":            {"type": "string"}
		}
	}`

	batchSchema = `{
		"type": "object",
		"required": ["chats"],
		"properties": {
			"chats": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"properties": {
						"chatId":           {"type": "string"},
						"assistantMessage": {"type": "string"},
						"userPrompt":       {"type": "string"},
						"instructorId":     {"type": ["string", "null"]}
					}
				}
			},
			"provider": {"type": "string", "enum": ["openai", "gemini"]},
			"model":    {"type": "string"}
		}
	}`

	completeCourseSchema = `{
		"type": "object",
		"required": ["title", "description", "level"],
		"properties": {
			"title":             {"type": "string", "minLength": 1, "maxLength": 500},
			"description":       {"type": "string", "minLength": 1, "maxLength": 5000},
			"level":             {"enum": ["BEGINNER", "INTERMEDIATE", "ADVANCED", "EXPERT"]},
			"numberOfSections":  {"type": "integer", "minimum": 0, "maximum": 20},
			"lessonsPerSection": {"type": "integer", "minimum": 0, "maximum": 10}
		}
	}`

	createCourseSchema = `{
		"type": "object",
		"required": ["instructorId", "title", "description", "price", "level", "aiGenerated"],
		"properties": {
			"instructorId": {"type": ["string", "null"]},
			"title":        {"type": "string", "minLength": 1, "maxLength": 500},
			"description":  {"type": "string", "minLength": 1, "maxLength": 5000},
			"price":        {"type": "number", "minimum": 0},
			"level":        {"enum": ["BEGINNER", "INTERMEDIATE", "ADVANCED", "EXPERT"]},
			"aiGenerated":  {"type": "boolean"}
		}
	}`

	createSectionSchema = `{
		"type": "object",
		"required": ["courseId", "title", "description", "order", "aiGenerated"],
		"properties": {
			"courseId":    {"type": "string", "minLength": 1},
			"title":       {"type": "string", "minLength": 1, "maxLength": 500},
			"description": {"type": "string", "minLength": 1, "maxLength": 5000},
			"order":       {"type": "integer", "minimum": 1},
			"aiGenerated": {"type": "boolean"}
		}
	}`

	createLessonSchema = `{
		"type": "object",
		"required": ["sectionId", "title", "description", "order", "durationMinutes", "lessonType", "estimatedDifficulty", "aiGenerated"],
		"properties": {
			"sectionId":           {"type": "string", "minLength": 1},
			"title":               {"type": "string", "minLength": 1, "maxLength": 500},
			"description":         {"type": "string", "minLength": 1, "maxLength": 5000},
			"order":               {"type": "integer", "minimum": 1},
			"durationMinutes":     {"type": "integer", "minimum": 1},
			"lessonType":          {"enum": ["THEORY", "PRACTICE", "MIXED", "PROJECT", "CASE_STUDY", "DISCUSSION"]},
			"estimatedDifficulty": {"type": "integer", "minimum": 0, "maximum": 10},
			"aiGenerated":         {"type": "boolean"}
		}
	}`

	createLessonContentSchema = `{
		"type": "object",
		"required": ["lessonId", "contentType", "difficultyLevel", "learningTechnique", "aiGenerated"],
		"properties": {
			"lessonId":          {"type": "string", "minLength": 1},
			"contentType":       {"enum": ["TEXT", "VIDEO_SCRIPT", "SLIDES", "INTERACTIVE", "CODE_EXAMPLE", "QUIZ", "EXERCISE", "READING", "AUDIO_SCRIPT"]},
			"difficultyLevel":   {"enum": ["BEGINNER", "INTERMEDIATE", "ADVANCED", "EXPERT"]},
			"learningTechnique": {"enum": ["VISUAL", "AUDITORY", "KINESTHETIC", "READING_WRITING", "MULTIMODAL"]},
			"aiGenerated":       {"type": "boolean"}
		}
	}`
)

var errEmptyBody = errors.New("request body must be a JSON object")

// Validator checks request bodies against a compiled JSON Schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// MustValidator compiles src and panics if it is not a valid schema.
func MustValidator(src string) *Validator {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("server: invalid JSON schema: %v", err))
	}
	return &Validator{schema: s}
}

var validators = struct {
	chat, courseAssistant, generateCourse, convert, batch                          *Validator
	completeCourse, createCourse, createSection, createLesson, createLessonContent *Validator
}{
	chat:                MustValidator(chatSchema),
	courseAssistant:     MustValidator(courseAssistantSchema),
	generateCourse:      MustValidator(generateCourseSchema),
	convert:             MustValidator(convertSchema),
	batch:               MustValidator(batchSchema),
	completeCourse:      MustValidator(completeCourseSchema),
	createCourse:        MustValidator(createCourseSchema),
	createSection:       MustValidator(createSectionSchema),
	createLesson:        MustValidator(createLessonSchema),
	createLessonContent: MustValidator(createLessonContentSchema),
}

// Validate checks body and returns a client-facing message describing the
// first problem. Missing or empty required fields are reported as
// "Missing required field: <name>".
func (v *Validator) Validate(body []byte) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}
	if !json.Valid(body) {
		return errors.New("Invalid JSON body")
	}

	res, err := v.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("validate request: %w", err)
	}
	if res.Valid() {
		return nil
	}

	problems := res.Errors()
	for _, p := range problems {
		if p.Type() == "required" {
			if field, ok := p.Details()["property"].(string); ok {
				return fmt.Errorf("Missing required field: %s", field)
			}
		}
	}
	for _, p := range problems {
		if p.Type() == "string_gte" && p.Details()["min"] == 1 {
			return fmt.Errorf("Missing required field: %s", p.Field())
		}
	}

	first := problems[0]
	if first.Field() == "(root)" {
		return errEmptyBody
	}
	return fmt.Errorf("%s: %s", first.Field(), first.Description())
}
