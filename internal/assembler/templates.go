package assembler

import (
	"strings"

	"alcyxob/protocol-engine/internal/domain"
)

// CategoryGeneral keys the checklist used when no condition was selected.
const CategoryGeneral domain.ConditionCategory = "general"

var symptomChecklists = map[domain.ConditionCategory]domain.SymptomCategory{
	domain.CategoryDigestive: {
		Label:    "Digestion",
		Symptoms: []string{"Bloating", "Constipation", "Loose stools", "Abdominal discomfort", "Heartburn"},
	},
	domain.CategoryInflammatory: {
		Label:    "Inflammation",
		Symptoms: []string{"Joint pain", "Stiffness", "Swelling", "Muscle aches"},
	},
	domain.CategoryMentalHealth: {
		Label:    "Mood and focus",
		Symptoms: []string{"Anxiety", "Low mood", "Irritability", "Brain fog"},
	},
	domain.CategoryEnergyMetabolism: {
		Label:    "Energy",
		Symptoms: []string{"Fatigue", "Afternoon slump", "Sugar cravings", "Shakiness between meals"},
	},
	domain.CategoryHormonal: {
		Label:    "Hormonal balance",
		Symptoms: []string{"Hot flashes", "Cramping", "Mood swings", "Night sweats"},
	},
	domain.CategoryImmune: {
		Label:    "Immunity",
		Symptoms: []string{"Congestion", "Sore throat", "Sneezing", "Itchy eyes"},
	},
	domain.CategoryCardiovascular: {
		Label:    "Heart health",
		Symptoms: []string{"Headache", "Dizziness", "Shortness of breath", "Palpitations"},
	},
	domain.CategorySkin: {
		Label:    "Skin",
		Symptoms: []string{"Breakouts", "Dryness", "Itching", "Redness"},
	},
	domain.CategorySleep: {
		Label:    "Sleep",
		Symptoms: []string{"Trouble falling asleep", "Night waking", "Morning grogginess", "Daytime sleepiness"},
	},
	CategoryGeneral: {
		Label:    "General wellbeing",
		Symptoms: []string{"Energy", "Digestion", "Mood", "Sleep quality", "Hunger"},
	},
}

func symptomTemplate(days int, categories []domain.ConditionCategory) domain.SymptomTrackingTemplate {
	if len(categories) == 0 {
		categories = []domain.ConditionCategory{CategoryGeneral}
	}
	out := make([]domain.SymptomCategory, 0, len(categories))
	for _, cat := range categories {
		c, ok := symptomChecklists[cat]
		if !ok {
			continue
		}
		out = append(out, domain.SymptomCategory{
			Category: cat,
			Label:    c.Label,
			Symptoms: append([]string(nil), c.Symptoms...),
		})
	}
	return domain.SymptomTrackingTemplate{
		Days:       days,
		ScaleMin:   SymptomScaleMin,
		ScaleMax:   SymptomScaleMax,
		Categories: out,
	}
}

const baseDisclaimer = "This protocol is general nutrition guidance and is not medical advice, diagnosis or treatment. " +
	"Stop and contact a qualified healthcare provider if you feel unwell at any point."

var kindDisclaimers = map[domain.ProtocolKind]string{
	domain.KindParasiteCleanse: "Cleanse protocols can cause digestive upset and are not suitable during pregnancy or breastfeeding. " +
		"Follow this plan only with the approval of your healthcare provider.",
	domain.KindLongevity: "Time-restricted eating is not suitable for everyone, including people with a history of disordered eating, " +
		"diabetes or low blood pressure. Confirm the eating window with your healthcare provider.",
}

// SeverityFor ranks protocol kinds by how much supervision they need.
func SeverityFor(kind domain.ProtocolKind) domain.DisclaimerSeverity {
	switch kind {
	case domain.KindParasiteCleanse:
		return domain.SeverityHigh
	case domain.KindLongevity:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func disclaimer(kind domain.ProtocolKind, conflicts, warnings []string) domain.SafetyDisclaimer {
	severity := SeverityFor(kind)

	notes := make([]string, 0, len(conflicts))
	for _, item := range conflicts {
		notes = append(notes, "Consult your provider regarding "+item+".")
	}

	parts := []string{baseDisclaimer}
	if extra, ok := kindDisclaimers[kind]; ok {
		parts = append(parts, extra)
	}
	parts = append(parts, warnings...)
	parts = append(parts, notes...)

	return domain.SafetyDisclaimer{
		Content:                strings.Join(parts, " "),
		Severity:               severity,
		AcknowledgmentRequired: severity != domain.SeverityLow || len(conflicts) > 0,
		Warnings:               append([]string(nil), warnings...),
		Conflicts:              notes,
	}
}
