package chat

import "strings"

var creationTriggers = []string{
	"crear el curso", "create the course",
	"generar el curso", "generate the course",
	"crear curso", "create course",
	"haz el curso", "make the course",
	"construir el curso", "build the course",
	"implementar el curso",
}

// IsCourseCreationIntent reports whether msg asks to build the course
// discussed so far. Matching is case-insensitive substring matching.
func IsCourseCreationIntent(msg string) bool {
	lower := strings.ToLower(msg)
	for _, t := range creationTriggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
