package middleware

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cleberrangel/workscan-api/internal/model"
)

// SanitizeConfig contains configuration for input sanitization
type SanitizeConfig struct {
	MaxStringLength int  // Maximum allowed string length, in bytes
	AllowHTML       bool // Whether to allow HTML in strings
	AllowNewlines   bool
}

// DefaultSanitizeConfig returns default sanitization configuration
func DefaultSanitizeConfig() SanitizeConfig {
	return SanitizeConfig{
		MaxStringLength: 10000,
		AllowHTML:       true,
	}
}

// SanitizeString removes control characters, trims whitespace, optionally
// escapes HTML and truncates to the maximum length on a rune boundary
func SanitizeString(input string, config SanitizeConfig) string {
	input = removeControlChars(input, config.AllowNewlines)
	input = strings.TrimSpace(input)

	if !config.AllowHTML {
		input = html.EscapeString(input)
	}

	if config.MaxStringLength > 0 && len(input) > config.MaxStringLength {
		input = input[:config.MaxStringLength]
		for !utf8.ValidString(input) {
			input = input[:len(input)-1]
		}
	}

	return input
}

// removeControlChars removes control characters from a string
func removeControlChars(s string, keepNewlines bool) string {
	var result strings.Builder
	for _, r := range s {
		if keepNewlines && (r == '\n' || r == '\t') {
			result.WriteRune(r)
			continue
		}
		if !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// SanitizeTitle sanitizes a title/name string
func SanitizeTitle(title string) string {
	config := DefaultSanitizeConfig()
	config.MaxStringLength = 255

	return SanitizeString(title, config)
}

// SanitizeText sanitizes free text such as descriptions
func SanitizeText(text string) string {
	config := DefaultSanitizeConfig()
	config.AllowNewlines = true

	return SanitizeString(text, config)
}

// SanitizeWorkflowCreate normalizes the text fields of a workflow payload.
// Text ends up in oracle prompts and in generated reports.
func SanitizeWorkflowCreate(req *model.WorkflowCreate) {
	req.Name = SanitizeTitle(req.Name)
	req.Description = SanitizeText(req.Description)
	for i := range req.Tasks {
		t := &req.Tasks[i]
		t.Name = SanitizeTitle(t.Name)
		t.Description = SanitizeText(t.Description)
		t.Category = SanitizeString(t.Category, SanitizeConfig{MaxStringLength: 100, AllowHTML: true})
		t.Frequency = strings.ToLower(strings.TrimSpace(t.Frequency))
		t.Complexity = strings.ToLower(strings.TrimSpace(t.Complexity))
	}
}
