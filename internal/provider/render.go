package provider

import (
	"fmt"
	"strings"
)

// NoText is rendered when a provider yields neither utterances nor text.
const NoText = "No text"

// Render formats a Result as transcript text.
// Utterances render as "**Speaker <label>** (<offset>s): <text>" joined by
// blank lines; otherwise the opaque text is used verbatim.
func Render(r Result) string {
	if len(r.Utterances) > 0 {
		lines := make([]string, len(r.Utterances))
		for i, u := range r.Utterances {
			lines[i] = fmt.Sprintf("**Speaker %s** (%.0fs): %s", u.Speaker, u.Start, u.Text)
		}
		return strings.Join(lines, "\n\n")
	}
	if r.Text != "" {
		return r.Text
	}
	return NoText
}
