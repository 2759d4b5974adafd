package cmdutils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

const logo = "🎓"

// PrintResponse prints an assistant reply under the service banner.
func PrintResponse(text string) {
	if text == "" {
		return
	}

	fmt.Printf("\n%s sophia\n%s\n\n", logo, text)
}

// PrintJSON writes v to stdout as indented JSON.
func PrintJSON(v any) error {
	return writeJSON(os.Stdout, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
