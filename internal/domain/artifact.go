// internal/domain/artifact.go
package domain

import "time"

// ArtifactVersion is bumped whenever the artifact layout changes.
const ArtifactVersion = 1

// Macros are per-meal or per-day nutrition figures.
type Macros struct {
	Calories float64 `bson:"calories" json:"calories"`
	ProteinG float64 `bson:"proteinG" json:"proteinG"`
	CarbsG   float64 `bson:"carbsG" json:"carbsG"`
	FatG     float64 `bson:"fatG" json:"fatG"`
}

// Add returns the element-wise sum of m and o.
func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		ProteinG: m.ProteinG + o.ProteinG,
		CarbsG:   m.CarbsG + o.CarbsG,
		FatG:     m.FatG + o.FatG,
	}
}

type Meal struct {
	MealType     string   `bson:"mealType" json:"mealType"` // breakfast, lunch, dinner, snack
	Name         string   `bson:"name" json:"name"`
	Ingredients  []string `bson:"ingredients" json:"ingredients"`
	Instructions string   `bson:"instructions,omitempty" json:"instructions,omitempty"`
	Macros       Macros   `bson:"macros" json:"macros"`
}

// DraftDay is one day as returned by the generation capability, after validation.
type DraftDay struct {
	Day   int    `json:"day"`
	Meals []Meal `json:"meals"`
	Notes string `json:"notes,omitempty"`
}

// RawArtifactDraft is validated generation output awaiting assembly.
type RawArtifactDraft struct {
	Days     []DraftDay
	Attempts int
}

type DaySchedule struct {
	Day          int    `bson:"day" json:"day"`
	Phase        string `bson:"phase" json:"phase"`
	EatingWindow string `bson:"eatingWindow,omitempty" json:"eatingWindow,omitempty"`
	Meals        []Meal `bson:"meals" json:"meals"`
	DailyTotals  Macros `bson:"dailyTotals" json:"dailyTotals"`
	Notes        string `bson:"notes,omitempty" json:"notes,omitempty"`
}

type IngredientEntry struct {
	Name        string `bson:"name" json:"name"`
	UsedOnDays  []int  `bson:"usedOnDays" json:"usedOnDays"`
	Recommended bool   `bson:"recommended" json:"recommended"`
}

type SymptomCategory struct {
	Category ConditionCategory `bson:"category" json:"category"`
	Label    string            `bson:"label" json:"label"`
	Symptoms []string          `bson:"symptoms" json:"symptoms"`
}

// SymptomTrackingTemplate lets the customer log a daily severity per symptom.
type SymptomTrackingTemplate struct {
	Days       int               `bson:"days" json:"days"`
	ScaleMin   int               `bson:"scaleMin" json:"scaleMin"`
	ScaleMax   int               `bson:"scaleMax" json:"scaleMax"`
	Categories []SymptomCategory `bson:"categories" json:"categories"`
}

type DisclaimerSeverity string

const (
	SeverityLow    DisclaimerSeverity = "low"
	SeverityMedium DisclaimerSeverity = "medium"
	SeverityHigh   DisclaimerSeverity = "high"
)

type SafetyDisclaimer struct {
	Content                string             `bson:"content" json:"content"`
	Severity               DisclaimerSeverity `bson:"severity" json:"severity"`
	AcknowledgmentRequired bool               `bson:"acknowledgmentRequired" json:"acknowledgmentRequired"`
	Warnings               []string           `bson:"warnings,omitempty" json:"warnings,omitempty"`
	Conflicts              []string           `bson:"conflicts,omitempty" json:"conflicts,omitempty"`
}

// ProtocolArtifact is the immutable result of one successful generation.
type ProtocolArtifact struct {
	Version                 int                     `bson:"version" json:"version"`
	ProtocolKind            ProtocolKind            `bson:"protocolKind" json:"protocolKind"`
	DurationDays            int                     `bson:"durationDays" json:"durationDays"`
	DailySchedules          []DaySchedule           `bson:"dailySchedules" json:"dailySchedules"`
	IngredientGuide         []IngredientEntry       `bson:"ingredientGuide" json:"ingredientGuide"`
	SymptomTrackingTemplate SymptomTrackingTemplate `bson:"symptomTrackingTemplate" json:"symptomTrackingTemplate"`
	SafetyDisclaimer        SafetyDisclaimer        `bson:"safetyDisclaimer" json:"safetyDisclaimer"`
	NutritionFocus          NutritionFocus          `bson:"nutritionFocus" json:"nutritionFocus"`
	GeneratedAt             time.Time               `bson:"generatedAt" json:"generatedAt"`
}
