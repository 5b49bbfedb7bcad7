// Package validation checks and cleans submitted project ideas.
//
// Sanitize is a best-effort markup filter applied before an idea reaches the
// model or the database. It is not an HTML sanitizer and must not be treated
// as a security boundary; output encoding stays the renderer's job.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/stackpilot/stackpilot-backend/internal/plans/domain"
)

const (
	MinIdeaLength = 10
	MaxIdeaLength = 2000
)

var (
	scriptBlock   = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	scriptOpener  = regexp.MustCompile(`(?i)<\s*/?\s*script\b[^>]*>?`)
	javascriptURI = regexp.MustCompile(`(?i)javascript\s*:`)
	// Only attributes inside a tag opener; prose like "online = cheap" stays.
	eventHandler  = regexp.MustCompile(`(?i)(<[a-z][^>]*?)[\s/]+on[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]*)`)
)

// ValidateIdea accepts the decoded "projectIdea" value and returns the trimmed,
// sanitized idea or a *domain.ValidationError.
func ValidateIdea(raw any) (string, error) {
	s, ok := raw.(string)
	if !ok {
		if raw == nil {
			return "", domain.NewValidationError("projectIdea is required")
		}
		return "", domain.NewValidationError("projectIdea must be a string")
	}

	trimmed := strings.TrimSpace(s)
	n := utf8.RuneCountInString(trimmed)
	switch {
	case n == 0:
		return "", domain.NewValidationError("projectIdea is required")
	case n < MinIdeaLength:
		return "", domain.NewValidationError("project idea must be at least %d characters long", MinIdeaLength)
	case n > MaxIdeaLength:
		return "", domain.NewValidationError("project idea must be at most %d characters long", MaxIdeaLength)
	}

	idea := strings.TrimSpace(Sanitize(trimmed))
	if idea == "" {
		return "", domain.NewValidationError("project idea has no text left after removing markup")
	}
	return idea, nil
}

// Sanitize strips script blocks, stray script tags, javascript: URIs and
// inline event handler attributes.
func Sanitize(s string) string {
	prev := ""
	// Removal can splice fragments into a new match, so repeat until stable.
	for i := 0; i < 5 && s != prev; i++ {
		prev = s
		s = scriptBlock.ReplaceAllString(s, "")
		s = scriptOpener.ReplaceAllString(s, "")
		s = javascriptURI.ReplaceAllString(s, "")
		s = eventHandler.ReplaceAllString(s, "$1")
	}
	return s
}
