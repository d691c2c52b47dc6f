package generation

import (
	"encoding/json"
	"sort"
	"strings"

	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/sanitize"
)

type draftEnvelope struct {
	Days []domain.DraftDay `json:"days"`
}

// ParseDraft decodes a reply and checks its shape. It accepts between 1 and
// durationDays distinct days in range; whether every day is present is the
// assembler's decision. Days come back sorted by day number.
func ParseDraft(text string, durationDays int) ([]domain.DraftDay, error) {
	body := extractJSON(text)
	if body == "" {
		return nil, invalidDraft("reply contains no JSON object")
	}

	var env draftEnvelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return nil, invalidDraft("reply is not valid JSON")
	}
	if len(env.Days) == 0 {
		return nil, invalidDraft("reply has no days")
	}
	if len(env.Days) > durationDays {
		return nil, invalidDraft("reply has %d days, expected at most %d", len(env.Days), durationDays)
	}

	seen := make(map[int]bool, len(env.Days))
	for _, d := range env.Days {
		if d.Day < 1 || d.Day > durationDays {
			return nil, invalidDraft("day %d is out of range", d.Day)
		}
		if seen[d.Day] {
			return nil, invalidDraft("day %d appears twice", d.Day)
		}
		seen[d.Day] = true

		if len(d.Meals) == 0 {
			return nil, invalidDraft("day %d has no meals", d.Day)
		}
		for i, m := range d.Meals {
			if strings.TrimSpace(m.Name) == "" {
				return nil, invalidDraft("day %d meal %d has no name", d.Day, i+1)
			}
			if m.Macros.Calories <= 0 || m.Macros.ProteinG < 0 || m.Macros.CarbsG < 0 || m.Macros.FatG < 0 {
				return nil, invalidDraft("day %d meal %d has invalid macros", d.Day, i+1)
			}
		}
	}

	sort.Slice(env.Days, func(i, j int) bool { return env.Days[i].Day < env.Days[j].Day })
	return env.Days, nil
}

// extractJSON strips markdown fences and any prose around the outermost object.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}

// CheckDraftText runs every model-written text field back through the sanitizer.
func CheckDraftText(s *sanitize.Sanitizer, days []domain.DraftDay) error {
	for _, d := range days {
		if err := checkText(s, "dayNotes", d.Notes); err != nil {
			return err
		}
		for _, m := range d.Meals {
			if err := checkText(s, "mealType", m.MealType); err != nil {
				return err
			}
			if err := checkText(s, "mealName", m.Name); err != nil {
				return err
			}
			if err := checkText(s, "instructions", m.Instructions); err != nil {
				return err
			}
			for _, ing := range m.Ingredients {
				if err := checkText(s, "ingredient", ing); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func checkText(s *sanitize.Sanitizer, field, text string) error {
	if _, err := s.Check(field, text); err != nil {
		return &InvalidDraftError{Reason: field + " failed sanitization (" + s.Reason(field, text) + ")"}
	}
	return nil
}
