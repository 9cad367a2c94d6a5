package main

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// displayLabel turns machine identifiers like "flash-ready" or
// "manual_trigger" into human-readable labels ("Flash Ready",
// "Manual Trigger").
func displayLabel(identifier string) string {
	cleaned := strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(identifier))
	if cleaned == "" {
		return "Unknown"
	}
	return cases.Title(language.Und).String(cleaned)
}
