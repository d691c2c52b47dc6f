package assembler

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/knowledge"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newAssembler() *Assembler {
	return New(knowledge.MustDefault()).WithClock(func() time.Time { return fixedNow })
}

func draftDays(n int) *domain.RawArtifactDraft {
	d := &domain.RawArtifactDraft{Attempts: 1}
	for i := n; i >= 1; i-- {
		d.Days = append(d.Days, domain.DraftDay{Day: i, Meals: []domain.Meal{
			{MealType: "breakfast", Name: fmt.Sprintf("Oats %d", i), Ingredients: []string{"Oats", " ginger "},
				Macros: domain.Macros{Calories: 400, ProteinG: 12, CarbsG: 60, FatG: 10}},
			{MealType: "dinner", Name: fmt.Sprintf("Salmon %d", i), Ingredients: []string{"Salmon", "Ginger", "Spinach"},
				Macros: domain.Macros{Calories: 600, ProteinG: 40, CarbsG: 20, FatG: 30}},
		}})
	}
	return d
}

func request(kind domain.ProtocolKind, days int, ids ...string) *domain.GenerationRequest {
	return &domain.GenerationRequest{
		ProtocolKind:         kind,
		DurationDays:         days,
		Intensity:            domain.IntensityModerate,
		ExperienceLevel:      domain.ExperienceBeginner,
		SelectedConditionIDs: ids,
		PriorityLevel:        domain.PriorityMedium,
		DailyCalorieTarget:   2000,
	}
}

func TestAssemble_ShortDraftIsIncomplete(t *testing.T) {
	_, err := newAssembler().Assemble(request(domain.KindGeneralWellness, 14), domain.NutritionFocus{}, draftDays(10), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIncompleteGeneration))

	_, err = newAssembler().Assemble(request(domain.KindGeneralWellness, 3), domain.NutritionFocus{}, nil, nil)
	assert.True(t, errors.Is(err, domain.ErrIncompleteGeneration))
}

func TestAssemble_DuplicateDayIsIncomplete(t *testing.T) {
	d := draftDays(3)
	d.Days[0].Day = 2
	_, err := newAssembler().Assemble(request(domain.KindGeneralWellness, 3), domain.NutritionFocus{}, d, nil)
	assert.True(t, errors.Is(err, domain.ErrIncompleteGeneration))
}

func TestAssemble_ScheduleLengthMatchesDuration(t *testing.T) {
	a := newAssembler()
	for _, n := range []int{1, 2, 7, 14, 30, 90} {
		art, err := a.Assemble(request(domain.KindGeneralWellness, n), domain.NutritionFocus{}, draftDays(n), nil)
		require.NoError(t, err)
		require.Len(t, art.DailySchedules, n)
		for i, s := range art.DailySchedules {
			assert.Equal(t, i+1, s.Day)
		}
		assert.Equal(t, n, art.SymptomTrackingTemplate.Days)
	}
}

func TestAssemble_BuildsArtifact(t *testing.T) {
	focus := domain.NutritionFocus{
		BeneficialFoods: []string{"Ginger", "High-fiber foods"},
		AvoidFoods:      []string{"Processed foods"},
		MealPlanFocus:   []string{"gut-health-support"},
		Conflicts:       []string{},
	}
	req := request(domain.KindAilmentTargeted, 2, "bloating", "constipation")

	art, err := newAssembler().Assemble(req, focus, draftDays(2), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.ArtifactVersion, art.Version)
	assert.Equal(t, fixedNow, art.GeneratedAt)
	assert.Equal(t, focus, art.NutritionFocus)

	day1 := art.DailySchedules[0]
	assert.Equal(t, PhaseMaintenance, day1.Phase)
	assert.Empty(t, day1.EatingWindow)
	assert.Equal(t, domain.Macros{Calories: 1000, ProteinG: 52, CarbsG: 80, FatG: 40}, day1.DailyTotals)

	require.Len(t, art.IngredientGuide, 4)
	assert.Equal(t, "Oats", art.IngredientGuide[0].Name)
	assert.Equal(t, "ginger", art.IngredientGuide[1].Name)
	assert.True(t, art.IngredientGuide[1].Recommended)
	assert.Equal(t, []int{1, 2}, art.IngredientGuide[1].UsedOnDays)
	assert.False(t, art.IngredientGuide[2].Recommended)

	tmpl := art.SymptomTrackingTemplate
	assert.Equal(t, 1, tmpl.ScaleMin)
	assert.Equal(t, 10, tmpl.ScaleMax)
	require.Len(t, tmpl.Categories, 1)
	assert.Equal(t, domain.CategoryDigestive, tmpl.Categories[0].Category)

	assert.Equal(t, domain.SeverityLow, art.SafetyDisclaimer.Severity)
	assert.False(t, art.SafetyDisclaimer.AcknowledgmentRequired)
}

func TestAssemble_GeneralChecklistWithoutConditions(t *testing.T) {
	art, err := newAssembler().Assemble(request(domain.KindGeneralWellness, 1), domain.NutritionFocus{}, draftDays(1), nil)
	require.NoError(t, err)
	require.Len(t, art.SymptomTrackingTemplate.Categories, 1)
	assert.Equal(t, CategoryGeneral, art.SymptomTrackingTemplate.Categories[0].Category)
}

func TestAssemble_CleansePhases(t *testing.T) {
	req := request(domain.KindParasiteCleanse, 9)
	art, err := newAssembler().Assemble(req, domain.NutritionFocus{}, draftDays(9), nil)
	require.NoError(t, err)

	var phases []string
	for _, s := range art.DailySchedules {
		phases = append(phases, s.Phase)
	}
	assert.Equal(t, []string{
		PhasePreparation, PhasePreparation, PhasePreparation,
		PhaseElimination, PhaseElimination, PhaseElimination,
		PhaseRestoration, PhaseRestoration, PhaseRestoration,
	}, phases)
	assert.Equal(t, domain.SeverityHigh, art.SafetyDisclaimer.Severity)
	assert.True(t, art.SafetyDisclaimer.AcknowledgmentRequired)
}

func TestAssemble_LongevityEatingWindow(t *testing.T) {
	req := request(domain.KindLongevity, 2)
	req.Intensity = domain.IntensityIntensive
	art, err := newAssembler().Assemble(req, domain.NutritionFocus{}, draftDays(2), nil)
	require.NoError(t, err)

	assert.Equal(t, PhaseTimeRestrictedEating, art.DailySchedules[0].Phase)
	assert.Equal(t, "18:6", art.DailySchedules[1].EatingWindow)
	assert.Equal(t, domain.SeverityMedium, art.SafetyDisclaimer.Severity)
	assert.True(t, art.SafetyDisclaimer.AcknowledgmentRequired)
}

func TestAssemble_ConflictsRequireAcknowledgment(t *testing.T) {
	focus := domain.NutritionFocus{Conflicts: []string{"Coffee"}}
	warnings := []string{"Coffee is recommended for Low Energy but should be avoided for Anxiety; it has been left out of the plan."}
	req := request(domain.KindAilmentTargeted, 1, "low-energy", "anxiety")

	art, err := newAssembler().Assemble(req, focus, draftDays(1), warnings)
	require.NoError(t, err)

	d := art.SafetyDisclaimer
	assert.Equal(t, domain.SeverityLow, d.Severity)
	assert.True(t, d.AcknowledgmentRequired)
	assert.Equal(t, []string{"Consult your provider regarding Coffee."}, d.Conflicts)
	assert.Equal(t, warnings, d.Warnings)
	assert.Contains(t, d.Content, "Consult your provider regarding Coffee.")

	cats := art.SymptomTrackingTemplate.Categories
	require.Len(t, cats, 2)
	assert.Equal(t, domain.CategoryMentalHealth, cats[0].Category)
	assert.Equal(t, domain.CategoryEnergyMetabolism, cats[1].Category)
}
