// internal/domain/protocol.go
package domain

// ProtocolKind selects which family of protocol the wizard generates.
type ProtocolKind string

const (
	KindLongevity       ProtocolKind = "longevity"
	KindParasiteCleanse ProtocolKind = "parasite-cleanse"
	KindAilmentTargeted ProtocolKind = "ailment-targeted"
	KindGeneralWellness ProtocolKind = "general-wellness"
)

type Intensity string

const (
	IntensityGentle    Intensity = "gentle"
	IntensityModerate  Intensity = "moderate"
	IntensityIntensive Intensity = "intensive"
)

type ExperienceLevel string

const (
	ExperienceFirstTime   ExperienceLevel = "first-time"
	ExperienceBeginner    ExperienceLevel = "beginner"
	ExperienceExperienced ExperienceLevel = "experienced"
	ExperienceAdvanced    ExperienceLevel = "advanced"
)

type PriorityLevel string

const (
	PriorityLow    PriorityLevel = "low"
	PriorityMedium PriorityLevel = "medium"
	PriorityHigh   PriorityLevel = "high"
)

// ClientProfile carries the optional physical profile of the person the protocol is for.
// Pointer fields distinguish "not provided" from zero.
type ClientProfile struct {
	Age           *int     `bson:"age,omitempty" json:"age,omitempty"`
	Gender        string   `bson:"gender,omitempty" json:"gender,omitempty" validate:"omitempty,oneof=female male other"`
	WeightKg      *float64 `bson:"weightKg,omitempty" json:"weightKg,omitempty"`
	ActivityLevel string   `bson:"activityLevel,omitempty" json:"activityLevel,omitempty" validate:"omitempty,oneof=sedentary light moderate active very-active"`
}

// IsEmpty reports whether no profile field was provided.
func (p ClientProfile) IsEmpty() bool {
	return p.Age == nil && p.Gender == "" && p.WeightKg == nil && p.ActivityLevel == ""
}

// Merge returns p with any field missing in p taken from other.
func (p ClientProfile) Merge(other *ClientProfile) ClientProfile {
	if other == nil {
		return p
	}
	merged := p
	if merged.Age == nil && other.Age != nil {
		age := *other.Age
		merged.Age = &age
	}
	if merged.Gender == "" {
		merged.Gender = other.Gender
	}
	if merged.WeightKg == nil && other.WeightKg != nil {
		w := *other.WeightKg
		merged.WeightKg = &w
	}
	if merged.ActivityLevel == "" {
		merged.ActivityLevel = other.ActivityLevel
	}
	return merged
}

// GenerationRequest is one wizard submission. It is never persisted raw; a sanitized
// copy becomes a ProtocolPlan's WizardConfiguration.
type GenerationRequest struct {
	ProtocolKind              ProtocolKind    `bson:"protocolKind" json:"protocolKind" validate:"required,oneof=longevity parasite-cleanse ailment-targeted general-wellness"`
	DurationDays              int             `bson:"durationDays" json:"durationDays"`
	Intensity                 Intensity       `bson:"intensity" json:"intensity" validate:"required,oneof=gentle moderate intensive"`
	ExperienceLevel           ExperienceLevel `bson:"experienceLevel" json:"experienceLevel" validate:"required,oneof=first-time beginner experienced advanced"`
	SelectedConditionIDs      []string        `bson:"selectedConditionIds,omitempty" json:"selectedConditionIds,omitempty" validate:"max=12,dive,required"`
	PriorityLevel             PriorityLevel   `bson:"priorityLevel" json:"priorityLevel" validate:"required,oneof=low medium high"`
	ClientProfile             ClientProfile   `bson:"clientProfile" json:"clientProfile"`
	DailyCalorieTarget        int             `bson:"dailyCalorieTarget" json:"dailyCalorieTarget"`
	PregnancyOrBreastfeeding  bool            `bson:"pregnancyOrBreastfeeding" json:"pregnancyOrBreastfeeding"`
	HealthcareProviderConsent bool            `bson:"healthcareProviderConsent" json:"healthcareProviderConsent"`
	PlanName                  string          `bson:"planName,omitempty" json:"planName,omitempty"`
	Notes                     string          `bson:"notes,omitempty" json:"notes,omitempty"`
	ClientName                string          `bson:"clientName,omitempty" json:"clientName,omitempty"`
}

// Clone returns a deep copy so stored configurations are never aliased by callers.
func (r GenerationRequest) Clone() GenerationRequest {
	c := r
	if r.SelectedConditionIDs != nil {
		c.SelectedConditionIDs = append([]string(nil), r.SelectedConditionIDs...)
	}
	c.ClientProfile = ClientProfile{}.Merge(&r.ClientProfile)
	return c
}

// NutritionFocus is the aggregated guidance for all selected conditions.
// BeneficialFoods and AvoidFoods never share an item; contested items live in Conflicts.
type NutritionFocus struct {
	BeneficialFoods []string `bson:"beneficialFoods" json:"beneficialFoods"`
	AvoidFoods      []string `bson:"avoidFoods" json:"avoidFoods"`
	KeyNutrients    []string `bson:"keyNutrients" json:"keyNutrients"`
	MealPlanFocus   []string `bson:"mealPlanFocus" json:"mealPlanFocus"`
	Conflicts       []string `bson:"conflicts" json:"conflicts"`
}
