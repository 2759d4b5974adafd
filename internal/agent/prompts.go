package agent

import (
	"fmt"
	"strings"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

// CourseArchitectPrompt is the system instruction of every agent run.
const CourseArchitectPrompt = `Eres un arquitecto de cursos experto en la plataforma SOPHIA.
Tu objetivo es crear cursos completos, detallados y estructurados usando las herramientas disponibles.

REGLAS ESTRICTAS:
1. Primero SIEMPRE crea el curso usando 'create_course'.
   - Si se proporciona un "Instructor ID" en el prompt, ÚSALO como 'instructorId'.
   - Si no, usa null.
2. GUARDA el 'idCourse' que te devuelve la herramienta (es un UUID).
3. Usa ese 'idCourse' para crear secciones con 'create_section'.
4. GUARDA el 'idSection' de cada sección que crees.
5. Para cada sección, crea lecciones usando 'create_lesson' con el 'idSection' correspondiente.
6. GUARDA el 'idLesson' de cada lección que crees.
7. Para cada lección, crea el contenido usando 'create_lesson_content' con el 'idLesson' correspondiente.
8. NO inventes IDs. Usa estrictamente los IDs devueltos por las herramientas anteriores.
9. NO preguntes confirmaciones. Ejecuta las acciones secuencialmente.
10. Si una herramienta falla, intenta continuar con el resto del flujo.

ESTRUCTURA RECOMENDADA:
- Para un curso básico: 3-5 secciones, 2-4 lecciones por sección
- Para un curso intermedio: 5-8 secciones, 3-5 lecciones por sección
- Para un curso avanzado: 8-12 secciones, 4-6 lecciones por sección

Cada lección debe tener contenido con:
- Contenido textual educativo
- Tipo apropiado (TEXT, VIDEO, QUIZ, etc.)
- Duración estimada en minutos`

// GeminiAcknowledgement is the model turn that follows the system
// instruction in Gemini histories.
const GeminiAcknowledgement = "Entendido. Estoy listo para crear cursos estructurados usando las herramientas disponibles. Seguiré las reglas estrictamente y ejecutaré las acciones secuencialmente sin pedir confirmaciones."

// TaskPrompt appends the instructor line to prompt when instructorID is set.
func TaskPrompt(prompt, instructorID string) string {
	if instructorID == "" {
		return prompt
	}
	return prompt + "\n\nInstructor ID: " + instructorID
}

// ConversionPrompt asks the agent to turn a proposed course structure into a
// real course.
func ConversionPrompt(userPrompt, assistantMessage, instructorID string) string {
	instructorPart := "\n\nIMPORTANT: Use instructorId=null since no instructor was specified."
	if instructorID != "" {
		instructorPart = fmt.Sprintf("\n\nIMPORTANT: Use instructorId=%q for all course creation.", instructorID)
	}

	return strings.TrimSpace(`
You are a Course Architect AI. Your task is to convert the following course structure into a REAL course in the SOPHIA platform using the available MCP tools.

ORIGINAL USER REQUEST:
` + userPrompt + `

PROPOSED COURSE STRUCTURE:
` + assistantMessage + `

YOUR MISSION:
1. Analyze the course structure above
2. Create the course using create_course tool
3. Create all sections (modules) using create_section tool
4. Create all lessons for each section using create_lesson tool
5. Optionally create lesson content using create_lesson_content tool

IMPORTANT GUIDELINES:
- Extract the course title, description, and determine appropriate level (BEGINNER/INTERMEDIATE/ADVANCED)
- Set a reasonable price (default 29.99 if not specified)
- Preserve the structure: sections → lessons → topics
- Maintain the order specified in the structure
- For each lesson, estimate duration in minutes (default: 30-45 minutes)
- Choose appropriate lessonType: THEORY, PRACTICE, MIXED, PROJECT, CASE_STUDY, or DISCUSSION
- Set estimatedDifficulty (0-10 scale)` + instructorPart + `

EXECUTION STRATEGY:
1. First, create the main course using create_course.
2. IMMEDIATELY use the courseId returned by create_course to create sections. DO NOT call list_courses.
3. After creating each section, use its sectionId to create lessons.
4. Do not stop until all sections and lessons are created.

Work step by step. After creating the course, use its ID to create sections. After creating each section, use its ID to create lessons.

BEGIN THE CONVERSION NOW.
`)
}

// HistoryPrompt asks the agent to build the course discussed in a chat.
func HistoryPrompt(history schema.Messages, request string) string {
	var sb strings.Builder
	for i, m := range history.Messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.ToUpper(string(m.Role)))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
	}

	return strings.TrimSpace(`
Based on the following conversation history, create the course that was discussed.
Use the structure, title, and details mentioned in the chat.

CHAT HISTORY:
` + sb.String() + `

USER REQUEST:
` + request + `

Create the course, sections, and lessons now.
`)
}

// CourseStructurePrompt asks a plain chat model for a course outline.
func CourseStructurePrompt(idea, guide string) string {
	return fmt.Sprintf(`Act as a Senior Curriculum Developer and Instructional Designer. Your goal is to create a professional, high-quality course outline optimized for student learning and engagement.

Course Concept: %q
Structural Guidelines: %q

Please design a detailed syllabus that:
1. Organizes content into logical Sections and Lessons.
2. Ensures a progressive learning path suitable for the target audience.
3. Maximizes pedagogical effectiveness.

Return ONLY the structured course outline, ready for implementation.`, idea, guide)
}
