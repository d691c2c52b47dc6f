// internal/domain/condition.go
package domain

// ConditionCategory groups conditions; drives meal-plan focus tags and symptom tracking.
type ConditionCategory string

const (
	CategoryDigestive        ConditionCategory = "digestive"
	CategoryInflammatory     ConditionCategory = "inflammatory"
	CategoryMentalHealth     ConditionCategory = "mental-health"
	CategoryEnergyMetabolism ConditionCategory = "energy-metabolism"
	CategoryHormonal         ConditionCategory = "hormonal"
	CategoryImmune           ConditionCategory = "immune"
	CategoryCardiovascular   ConditionCategory = "cardiovascular"
	CategorySkin             ConditionCategory = "skin"
	CategorySleep            ConditionCategory = "sleep"
)

// Categories lists the fixed category set in display order.
var Categories = []ConditionCategory{
	CategoryDigestive,
	CategoryInflammatory,
	CategoryMentalHealth,
	CategoryEnergyMetabolism,
	CategoryHormonal,
	CategoryImmune,
	CategoryCardiovascular,
	CategorySkin,
	CategorySleep,
}

// Valid reports whether c is one of the fixed categories.
func (c ConditionCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Condition is one knowledge-base entry. Food and nutrient lists are in relevance order.
type Condition struct {
	ID              string            `yaml:"id" json:"id"`
	DisplayName     string            `yaml:"displayName" json:"displayName"`
	Category        ConditionCategory `yaml:"category" json:"category"`
	SeverityTier    string            `yaml:"severityTier" json:"severityTier"`
	BeneficialFoods []string          `yaml:"beneficialFoods" json:"beneficialFoods"`
	AvoidFoods      []string          `yaml:"avoidFoods" json:"avoidFoods"`
	KeyNutrients    []string          `yaml:"keyNutrients" json:"keyNutrients"`
}
