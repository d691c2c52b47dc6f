// Package assembler turns a validated generation draft into the final, versioned
// protocol artifact. It performs no I/O.
package assembler

import (
	"sort"
	"strings"
	"time"

	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/generation"
	"alcyxob/protocol-engine/internal/knowledge"
)

// Symptom scale used by every tracking template.
const (
	SymptomScaleMin = 1
	SymptomScaleMax = 10
)

const (
	PhaseMaintenance          = "maintenance"
	PhaseTimeRestrictedEating = "time-restricted-eating"
	PhasePreparation          = "preparation"
	PhaseElimination          = "elimination"
	PhaseRestoration          = "restoration"
)

// Assembler is stateless apart from its clock and the read-only knowledge base.
type Assembler struct {
	base *knowledge.Base
	now  func() time.Time
}

func New(base *knowledge.Base) *Assembler {
	return &Assembler{base: base, now: time.Now}
}

// WithClock returns a copy that stamps artifacts using now.
func (a *Assembler) WithClock(now func() time.Time) *Assembler {
	c := *a
	c.now = now
	return &c
}

// Assemble builds the artifact. The draft must cover every day from 1 to DurationDays;
// missing days fail with INCOMPLETE_GENERATION and are never filled in.
func (a *Assembler) Assemble(req *domain.GenerationRequest, focus domain.NutritionFocus, draft *domain.RawArtifactDraft, warnings []string) (*domain.ProtocolArtifact, error) {
	var days []domain.DraftDay
	if draft != nil {
		days = append(days, draft.Days...)
	}
	if len(days) != req.DurationDays {
		return nil, domain.NewIncompleteGenerationError(len(days), req.DurationDays)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	for i, d := range days {
		if d.Day != i+1 {
			return nil, domain.NewIncompleteGenerationError(i, req.DurationDays)
		}
	}

	conditions, err := a.base.Lookup(req.SelectedConditionIDs)
	if err != nil {
		return nil, err
	}

	schedules := make([]domain.DaySchedule, len(days))
	for i, d := range days {
		schedules[i] = schedule(req, d)
	}

	return &domain.ProtocolArtifact{
		Version:                 domain.ArtifactVersion,
		ProtocolKind:            req.ProtocolKind,
		DurationDays:            req.DurationDays,
		DailySchedules:          schedules,
		IngredientGuide:         ingredientGuide(schedules, focus),
		SymptomTrackingTemplate: symptomTemplate(req.DurationDays, knowledge.Categories(conditions)),
		SafetyDisclaimer:        disclaimer(req.ProtocolKind, focus.Conflicts, warnings),
		NutritionFocus:          focus,
		GeneratedAt:             a.now().UTC(),
	}, nil
}

func schedule(req *domain.GenerationRequest, d domain.DraftDay) domain.DaySchedule {
	s := domain.DaySchedule{
		Day:   d.Day,
		Phase: phaseFor(req.ProtocolKind, d.Day, req.DurationDays),
		Meals: d.Meals,
		Notes: d.Notes,
	}
	if req.ProtocolKind == domain.KindLongevity {
		s.EatingWindow = generation.EatingWindow(req.Intensity)
	}
	for _, m := range d.Meals {
		s.DailyTotals = s.DailyTotals.Add(m.Macros)
	}
	return s
}

// phaseFor splits cleanse protocols into three near-equal phases.
func phaseFor(kind domain.ProtocolKind, day, total int) string {
	switch kind {
	case domain.KindParasiteCleanse:
		switch (day - 1) * 3 / total {
		case 0:
			return PhasePreparation
		case 1:
			return PhaseElimination
		default:
			return PhaseRestoration
		}
	case domain.KindLongevity:
		return PhaseTimeRestrictedEating
	default:
		return PhaseMaintenance
	}
}

func ingredientGuide(schedules []domain.DaySchedule, focus domain.NutritionFocus) []domain.IngredientEntry {
	recommended := make(map[string]bool, len(focus.BeneficialFoods))
	for _, f := range focus.BeneficialFoods {
		recommended[key(f)] = true
	}

	index := make(map[string]int)
	guide := make([]domain.IngredientEntry, 0)
	for _, s := range schedules {
		for _, m := range s.Meals {
			for _, ing := range m.Ingredients {
				k := key(ing)
				if k == "" {
					continue
				}
				i, ok := index[k]
				if !ok {
					i = len(guide)
					index[k] = i
					guide = append(guide, domain.IngredientEntry{
						Name:        strings.TrimSpace(ing),
						Recommended: recommended[k],
					})
				}
				used := guide[i].UsedOnDays
				if len(used) == 0 || used[len(used)-1] != s.Day {
					guide[i].UsedOnDays = append(used, s.Day)
				}
			}
		}
	}
	return guide
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
