// Package safety is the medical-safety gate every generation request passes before any
// generation call is made.
package safety

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/knowledge"

	"github.com/go-playground/validator/v10"
)

// requestValidate checks the enum and shape tags on domain.GenerationRequest.
var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New()
	requestValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Limits are the accepted numeric ranges, inclusive.
type Limits struct {
	MinDurationDays, MaxDurationDays int
	MinAge, MaxAge                   int
	MinCalories, MaxCalories         int
	MinWeightKg, MaxWeightKg         int
}

func DefaultLimits() Limits {
	return Limits{
		MinDurationDays: 1, MaxDurationDays: 90,
		MinAge: 13, MaxAge: 120,
		MinCalories: 800, MaxCalories: 6000,
		MinWeightKg: 20, MaxWeightKg: 400,
	}
}

// Decision is the outcome of one Validate call. When Approved is false, Err is a
// *domain.ProtocolError naming the blocking rule.
type Decision struct {
	Approved bool
	Err      error
	Warnings []string
}

func (d Decision) Blocked() bool { return !d.Approved }

func blocked(err error) Decision { return Decision{Err: err} }

// Validator holds no per-request state and is safe for concurrent use.
type Validator struct {
	base       *knowledge.Base
	aggregator *knowledge.Aggregator
	limits     Limits
}

func NewValidator(base *knowledge.Base, limits Limits) *Validator {
	return &Validator{
		base:       base,
		aggregator: knowledge.NewAggregator(base),
		limits:     limits,
	}
}

// Validate runs the rules in order and stops at the first block:
// request shape, numeric ranges, contraindication, consent. Cross-condition
// conflicts never block; they come back as warnings.
func (v *Validator) Validate(req *domain.GenerationRequest) Decision {
	if req == nil {
		return blocked(domain.NewInvalidRequestError("", "request is required"))
	}
	if err := v.checkShape(req); err != nil {
		return blocked(err)
	}
	if err := v.checkRanges(req); err != nil {
		return blocked(err)
	}
	if req.ProtocolKind == domain.KindParasiteCleanse && req.PregnancyOrBreastfeeding {
		return blocked(domain.NewContraindicationError())
	}
	if requiresConsent(req.ProtocolKind) && !req.HealthcareProviderConsent {
		return blocked(domain.NewConsentRequiredError(req.ProtocolKind))
	}

	warnings, err := v.conflictWarnings(req.SelectedConditionIDs, req.PriorityLevel)
	if err != nil {
		return blocked(err)
	}
	return Decision{Approved: true, Warnings: warnings}
}

func requiresConsent(kind domain.ProtocolKind) bool {
	return kind == domain.KindParasiteCleanse || kind == domain.KindLongevity
}

func (v *Validator) checkShape(req *domain.GenerationRequest) error {
	if err := requestValidate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return domain.NewInvalidRequestError(fe.Field(), fmt.Sprintf("invalid value for %s", fe.Field()))
		}
		return domain.NewInvalidRequestError("", "request could not be validated")
	}
	for _, id := range req.SelectedConditionIDs {
		if !v.base.Has(id) {
			return domain.NewUnknownConditionError()
		}
	}
	if req.ProtocolKind == domain.KindAilmentTargeted && len(req.SelectedConditionIDs) == 0 {
		return domain.NewInvalidRequestError("selectedConditionIds", "ailment-targeted protocols need at least one condition")
	}
	return nil
}

func (v *Validator) checkRanges(req *domain.GenerationRequest) error {
	l := v.limits
	if req.DurationDays < l.MinDurationDays || req.DurationDays > l.MaxDurationDays {
		return domain.NewBoundaryViolation("durationDays", l.MinDurationDays, l.MaxDurationDays)
	}
	if age := req.ClientProfile.Age; age != nil && (*age < l.MinAge || *age > l.MaxAge) {
		return domain.NewBoundaryViolation("age", l.MinAge, l.MaxAge)
	}
	if req.DailyCalorieTarget < l.MinCalories || req.DailyCalorieTarget > l.MaxCalories {
		return domain.NewBoundaryViolation("dailyCalorieTarget", l.MinCalories, l.MaxCalories)
	}
	return v.checkWeight(req.ClientProfile)
}

func (v *Validator) checkWeight(p domain.ClientProfile) error {
	l := v.limits
	if w := p.WeightKg; w != nil && (*w < float64(l.MinWeightKg) || *w > float64(l.MaxWeightKg)) {
		return domain.NewBoundaryViolation("weightKg", l.MinWeightKg, l.MaxWeightKg)
	}
	return nil
}

// ValidateProfile checks a stored customer profile with the same enum and range rules
// applied to wizard submissions.
func (v *Validator) ValidateProfile(p domain.ClientProfile) error {
	if err := requestValidate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return domain.NewInvalidRequestError(verrs[0].Field(), fmt.Sprintf("invalid value for %s", verrs[0].Field()))
		}
		return domain.NewInvalidRequestError("", "profile could not be validated")
	}
	l := v.limits
	if age := p.Age; age != nil && (*age < l.MinAge || *age > l.MaxAge) {
		return domain.NewBoundaryViolation("age", l.MinAge, l.MaxAge)
	}
	return v.checkWeight(p)
}

func (v *Validator) conflictWarnings(ids []string, priority domain.PriorityLevel) ([]string, error) {
	conflicts, err := v.aggregator.Conflicts(ids, priority)
	if err != nil {
		return nil, err
	}
	warnings := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		warnings = append(warnings, fmt.Sprintf(
			"%s is recommended for %s but should be avoided for %s; it has been left out of the plan.",
			c.Item, strings.Join(c.RecommendedBy, ", "), strings.Join(c.AvoidedBy, ", ")))
	}
	return warnings, nil
}
