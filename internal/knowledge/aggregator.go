package knowledge

import (
	"alcyxob/protocol-engine/internal/domain"
)

// HighPriorityTopN is how many foods per condition survive when priority is high.
const HighPriorityTopN = 3

var focusTags = map[domain.ConditionCategory]string{
	domain.CategoryDigestive:        "gut-health-support",
	domain.CategoryInflammatory:     "anti-inflammatory",
	domain.CategoryMentalHealth:     "mood-support",
	domain.CategoryEnergyMetabolism: "energy-balance",
	domain.CategoryHormonal:         "hormone-balance",
	domain.CategoryImmune:           "immune-support",
	domain.CategoryCardiovascular:   "heart-health",
	domain.CategorySkin:             "skin-health",
	domain.CategorySleep:            "sleep-support",
}

// FocusTag maps a category to its meal-plan focus tag.
func FocusTag(category domain.ConditionCategory) string {
	return focusTags[category]
}

// Conflict is one food recommended by one selected condition and avoided by another.
type Conflict struct {
	Item          string
	RecommendedBy []string
	AvoidedBy     []string
}

// Aggregator combines selected conditions into one NutritionFocus. It holds no
// mutable state, so the same input always yields the same output.
type Aggregator struct {
	base *Base
	topN int
}

func NewAggregator(base *Base) *Aggregator {
	return &Aggregator{base: base, topN: HighPriorityTopN}
}

// Aggregate unions the guidance of the selected conditions. Conditions are visited in
// table order so the result depends only on the set of ids. Items are de-duplicated
// case-insensitively keeping the first spelling seen. A food both recommended and
// avoided is removed from both lists and reported in Conflicts.
func (a *Aggregator) Aggregate(ids []string, priority domain.PriorityLevel) (domain.NutritionFocus, error) {
	conditions, err := a.base.Lookup(ids)
	if err != nil {
		return domain.NutritionFocus{}, err
	}

	beneficial := newOrderedSet()
	avoid := newOrderedSet()
	nutrients := newOrderedSet()
	for _, c := range conditions {
		beneficial.add(a.limit(c.BeneficialFoods, priority)...)
		avoid.add(a.limit(c.AvoidFoods, priority)...)
		nutrients.add(c.KeyNutrients...)
	}

	conflicts := newOrderedSet()
	for _, item := range beneficial.items {
		if avoid.has(item) {
			conflicts.add(item)
		}
	}
	for _, item := range conflicts.items {
		beneficial.remove(item)
		avoid.remove(item)
	}

	tags := make([]string, 0, len(conditions))
	for _, cat := range Categories(conditions) {
		tags = append(tags, FocusTag(cat))
	}

	return domain.NutritionFocus{
		BeneficialFoods: beneficial.list(),
		AvoidFoods:      avoid.list(),
		KeyNutrients:    nutrients.list(),
		MealPlanFocus:   tags,
		Conflicts:       conflicts.list(),
	}, nil
}

// Conflicts reports recommended/avoided overlaps among the selected conditions with
// the conditions on each side, for warnings shown before generation. It trims the
// lists by priority exactly like Aggregate, so every reported item is also in
// the focus Conflicts.
func (a *Aggregator) Conflicts(ids []string, priority domain.PriorityLevel) ([]Conflict, error) {
	conditions, err := a.base.Lookup(ids)
	if err != nil {
		return nil, err
	}

	type sides struct {
		item        string
		recommended []string
		avoided     []string
	}
	byItem := make(map[string]*sides)
	var order []string
	touch := func(food string) *sides {
		k := itemKey(food)
		s, ok := byItem[k]
		if !ok {
			s = &sides{item: food}
			byItem[k] = s
			order = append(order, k)
		}
		return s
	}
	for _, c := range conditions {
		for _, f := range a.limit(c.BeneficialFoods, priority) {
			s := touch(f)
			s.recommended = append(s.recommended, c.DisplayName)
		}
		for _, f := range a.limit(c.AvoidFoods, priority) {
			s := touch(f)
			s.avoided = append(s.avoided, c.DisplayName)
		}
	}

	var out []Conflict
	for _, k := range order {
		s := byItem[k]
		if len(s.recommended) > 0 && len(s.avoided) > 0 {
			out = append(out, Conflict{Item: s.item, RecommendedBy: s.recommended, AvoidedBy: s.avoided})
		}
	}
	return out, nil
}

func (a *Aggregator) limit(items []string, priority domain.PriorityLevel) []string {
	if priority == domain.PriorityHigh && len(items) > a.topN {
		return items[:a.topN]
	}
	return items
}

type orderedSet struct {
	items []string
	keys  map[string]int
}

func newOrderedSet() *orderedSet {
	return &orderedSet{keys: make(map[string]int)}
}

func (s *orderedSet) add(items ...string) {
	for _, item := range items {
		k := itemKey(item)
		if k == "" {
			continue
		}
		if _, ok := s.keys[k]; ok {
			continue
		}
		s.keys[k] = len(s.items)
		s.items = append(s.items, item)
	}
}

func (s *orderedSet) has(item string) bool {
	_, ok := s.keys[itemKey(item)]
	return ok
}

func (s *orderedSet) remove(item string) {
	k := itemKey(item)
	i, ok := s.keys[k]
	if !ok {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	delete(s.keys, k)
	for j := i; j < len(s.items); j++ {
		s.keys[itemKey(s.items[j])] = j
	}
}

// list never returns nil so empty lists serialize as [].
func (s *orderedSet) list() []string {
	return append(make([]string, 0, len(s.items)), s.items...)
}
