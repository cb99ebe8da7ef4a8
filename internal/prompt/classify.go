package prompt

import "strings"

// triggerWords selects the image-generation path over the plain-text
// path. This is a heuristic: "make" in "make sure" misfires, and that
// is accepted behavior.
var triggerWords = []string{
	"generate",
	"create",
	"show",
	"visualize",
	"make",
	"design",
	"draw",
	"render",
}

// WantsImage reports whether a user message asks for an image, by
// case-insensitive substring match against the fixed trigger set.
func WantsImage(message string) bool {
	lower := strings.ToLower(message)
	for _, word := range triggerWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
