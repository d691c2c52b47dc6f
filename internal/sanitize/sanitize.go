// Package sanitize rejects unsafe free text before it reaches persistence, the
// generation prompt, or (for model output) the assembled artifact.
//
// The policy is reject-or-pass: text is either returned byte-for-byte unchanged or
// refused with a domain UNSAFE_INPUT error naming the field. The offending content
// is never echoed back.
package sanitize

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"alcyxob/protocol-engine/internal/domain"
)

// Field names used for length limits and error reporting.
const (
	FieldPlanName        = "planName"
	FieldPlanDescription = "planDescription"
	FieldNotes           = "notes"
	FieldClientName      = "clientName"
)

// Config sets per-field length limits (in runes).
type Config struct {
	MaxLength        map[string]int
	DefaultMaxLength int
}

func DefaultConfig() Config {
	return Config{
		MaxLength: map[string]int{
			FieldPlanName:        120,
			FieldClientName:      120,
			FieldPlanDescription: 1000,
			FieldNotes:           2000,
		},
		DefaultMaxLength: 4000,
	}
}

type rule struct {
	name    string
	pattern *regexp.Regexp
	// normalized rules run against lower-cased, whitespace-collapsed text.
	normalized bool
}

var rules = []rule{
	// Markup
	{name: "markup", pattern: regexp.MustCompile(`<\s*/?\s*[a-zA-Z!?][^>]*>`)},
	{name: "markup", pattern: regexp.MustCompile(`(?i)\b(javascript|vbscript)\s*:`)},
	{name: "markup", pattern: regexp.MustCompile(`(?i)\bon(load|error|click|mouseover|focus)\s*=`)},

	// SQL
	{name: "sql", pattern: regexp.MustCompile(`(?i);\s*(select|insert|update|delete|drop|alter|truncate|create|exec|execute|union|grant)\b`)},
	{name: "sql", pattern: regexp.MustCompile(`['"]\s*;`)},
	{name: "sql", pattern: regexp.MustCompile(`(?i)\b(drop|truncate|alter)\s+(table|database|schema)\b`)},
	{name: "sql", pattern: regexp.MustCompile(`(?i)\bunion\s+(all\s+)?select\b`)},
	{name: "sql", pattern: regexp.MustCompile(`(?i)'\s*or\s+'?\w+'?\s*=\s*'?\w+`)},
	{name: "sql", pattern: regexp.MustCompile(`--|/\*|\*/`)},

	// Shell
	{name: "shell", pattern: regexp.MustCompile("\\$\\(|\\$\\{|`")},
	{name: "shell", pattern: regexp.MustCompile(`&&|\|\|`)},
	{name: "shell", pattern: regexp.MustCompile(`\|\s*(sh|bash|zsh|nc|curl|wget|python|perl)\b`)},
	{name: "shell", pattern: regexp.MustCompile(`;\s*(rm|curl|wget|sh|bash|cat|nc|chmod|chown|sudo)\b`)},
	{name: "shell", pattern: regexp.MustCompile(`(?i)\brm\s+-[a-z]*[rf]`)},
	{name: "shell", pattern: regexp.MustCompile(`>\s*/dev/|\.\./`)},

	// Prompt injection
	{name: "injection", normalized: true, pattern: regexp.MustCompile(`\bignore (all |any )?(of )?(the |your )?(previous|prior|above|earlier|preceding) (instructions|rules|prompts|directions|messages)`)},
	{name: "injection", normalized: true, pattern: regexp.MustCompile(`\bdisregard (all |any )?(the |your )?(previous|prior|above|safety|instructions|rules|guidelines)`)},
	{name: "injection", normalized: true, pattern: regexp.MustCompile(`\bforget (all |everything )?(about )?(your |the )?(previous |prior )?(instructions|rules|guidelines)`)},
	{name: "injection", normalized: true, pattern: regexp.MustCompile(`\b(override|bypass|disable) (the |all |any |your )?(safety|guardrails|restrictions|filters)`)},
	{name: "injection", normalized: true, pattern: regexp.MustCompile(`\b(reveal|print|show|repeat) (me )?(the |your )?(system|hidden|initial) prompt`)},
	{name: "injection", normalized: true, pattern: regexp.MustCompile(`\bjailbreak|\bdeveloper mode\b|\bdo anything now\b`)},
	{name: "injection", normalized: true, pattern: regexp.MustCompile(`\bnew instructions\s*:|\b(new )?system (prompt|message)\s*:|\bact as (an? )?(unfiltered|unrestricted|uncensored)`)},
	// Role markers only count at the start of a line; "Immune system: ..." is ordinary prose.
	{name: "injection", pattern: regexp.MustCompile(`(?im)^[ \t]*(system|assistant)[ \t]*:`)},
}

var (
	controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F\x{200B}-\x{200F}\x{2028}\x{2029}\x{FEFF}]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Sanitizer is stateless after construction and safe for concurrent use.
type Sanitizer struct {
	maxLength  map[string]int
	defaultMax int
}

func New(cfg Config) *Sanitizer {
	maxLength := make(map[string]int, len(cfg.MaxLength))
	for k, v := range cfg.MaxLength {
		maxLength[k] = v
	}
	if cfg.DefaultMaxLength <= 0 {
		cfg.DefaultMaxLength = DefaultConfig().DefaultMaxLength
	}
	return &Sanitizer{maxLength: maxLength, defaultMax: cfg.DefaultMaxLength}
}

func Default() *Sanitizer {
	return New(DefaultConfig())
}

// Check returns text unchanged when it is safe, otherwise an UNSAFE_INPUT error for field.
func (s *Sanitizer) Check(field, text string) (string, error) {
	if text == "" {
		return text, nil
	}
	if reason := s.violation(field, text); reason != "" {
		err := domain.NewUnsafeInputError(field)
		err.Cause = &violationError{reason: reason}
		return "", err
	}
	return text, nil
}

// Reason reports which rule family rejected text, or "" when it is safe.
// Intended for logs and metrics; never for client responses.
func (s *Sanitizer) Reason(field, text string) string {
	return s.violation(field, text)
}

func (s *Sanitizer) violation(field, text string) string {
	if !utf8.ValidString(text) {
		return "encoding"
	}
	if utf8.RuneCountInString(text) > s.limit(field) {
		return "length"
	}
	if controlChars.MatchString(text) {
		return "control"
	}
	if strings.Count(text, "<") != strings.Count(text, ">") {
		return "markup"
	}
	normalized := whitespace.ReplaceAllString(strings.ToLower(text), " ")
	for _, r := range rules {
		subject := text
		if r.normalized {
			subject = normalized
		}
		if r.pattern.MatchString(subject) {
			return r.name
		}
	}
	return ""
}

func (s *Sanitizer) limit(field string) int {
	if n, ok := s.maxLength[field]; ok && n > 0 {
		return n
	}
	return s.defaultMax
}

// SanitizeRequest checks every free-text field of a wizard submission.
func (s *Sanitizer) SanitizeRequest(req *domain.GenerationRequest) error {
	fields := []struct {
		name  string
		value string
	}{
		{FieldPlanName, req.PlanName},
		{FieldNotes, req.Notes},
		{FieldClientName, req.ClientName},
		{"gender", req.ClientProfile.Gender},
		{"activityLevel", req.ClientProfile.ActivityLevel},
	}
	for _, f := range fields {
		if _, err := s.Check(f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

type violationError struct {
	reason string
}

func (e *violationError) Error() string {
	return "sanitizer rule matched: " + e.reason
}

// ReasonOf returns the rule family behind an error from Check, or "" for other errors.
func ReasonOf(err error) string {
	var v *violationError
	if errors.As(err, &v) {
		return v.reason
	}
	return ""
}
