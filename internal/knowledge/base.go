// Package knowledge holds the static condition table and the aggregation that turns a
// set of selected conditions into one NutritionFocus.
package knowledge

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"alcyxob/protocol-engine/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed conditions.yaml
var embeddedConditions []byte

var ErrInvalidTable = errors.New("invalid condition table")

type conditionTable struct {
	Conditions []domain.Condition `yaml:"conditions"`
}

// Base is the loaded, read-only condition table. Safe for concurrent use.
type Base struct {
	conditions []domain.Condition
	index      map[string]int
}

// Default loads the table compiled into the binary.
func Default() (*Base, error) {
	return Parse(embeddedConditions)
}

// MustDefault is Default for package-level wiring and tests; it panics on a broken embed.
func MustDefault() *Base {
	b, err := Default()
	if err != nil {
		panic(err)
	}
	return b
}

// LoadFile reads an operator-supplied table that replaces the embedded one.
func LoadFile(path string) (*Base, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open condition table: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*Base, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read condition table: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Base, error) {
	var table conditionTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	return New(table.Conditions)
}

// New validates conditions and builds a Base. Table order is preserved and is the
// canonical aggregation order.
func New(conditions []domain.Condition) (*Base, error) {
	if len(conditions) == 0 {
		return nil, fmt.Errorf("%w: no conditions", ErrInvalidTable)
	}
	b := &Base{
		conditions: make([]domain.Condition, 0, len(conditions)),
		index:      make(map[string]int, len(conditions)),
	}
	for _, c := range conditions {
		if err := validateCondition(c); err != nil {
			return nil, err
		}
		if _, dup := b.index[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate condition id %q", ErrInvalidTable, c.ID)
		}
		b.index[c.ID] = len(b.conditions)
		b.conditions = append(b.conditions, cloneCondition(c))
	}
	return b, nil
}

func validateCondition(c domain.Condition) error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: condition without id", ErrInvalidTable)
	}
	if c.DisplayName == "" {
		return fmt.Errorf("%w: condition %q has no display name", ErrInvalidTable, c.ID)
	}
	if !c.Category.Valid() {
		return fmt.Errorf("%w: condition %q has unknown category %q", ErrInvalidTable, c.ID, c.Category)
	}
	avoid := make(map[string]struct{}, len(c.AvoidFoods))
	for _, f := range c.AvoidFoods {
		avoid[itemKey(f)] = struct{}{}
	}
	for _, f := range c.BeneficialFoods {
		if _, both := avoid[itemKey(f)]; both {
			return fmt.Errorf("%w: condition %q both recommends and avoids %q", ErrInvalidTable, c.ID, f)
		}
	}
	return nil
}

// Get returns a copy of the condition with the given id.
func (b *Base) Get(id string) (domain.Condition, bool) {
	i, ok := b.index[id]
	if !ok {
		return domain.Condition{}, false
	}
	return cloneCondition(b.conditions[i]), true
}

func (b *Base) Has(id string) bool {
	_, ok := b.index[id]
	return ok
}

// All returns every condition in table order.
func (b *Base) All() []domain.Condition {
	out := make([]domain.Condition, len(b.conditions))
	for i, c := range b.conditions {
		out[i] = cloneCondition(c)
	}
	return out
}

// ByCategory returns the conditions of one category in table order.
func (b *Base) ByCategory(category domain.ConditionCategory) []domain.Condition {
	var out []domain.Condition
	for _, c := range b.conditions {
		if c.Category == category {
			out = append(out, cloneCondition(c))
		}
	}
	return out
}

// Lookup resolves ids into conditions in canonical table order, dropping duplicates.
// Any unknown id yields an UNKNOWN_CONDITION error.
func (b *Base) Lookup(ids []string) ([]domain.Condition, error) {
	positions := make([]bool, len(b.conditions))
	for _, id := range ids {
		i, ok := b.index[id]
		if !ok {
			return nil, domain.NewUnknownConditionError()
		}
		positions[i] = true
	}
	out := make([]domain.Condition, 0, len(ids))
	for i, selected := range positions {
		if selected {
			out = append(out, b.conditions[i])
		}
	}
	return out, nil
}

// Categories returns the distinct categories of the given conditions in the fixed
// category display order.
func Categories(conditions []domain.Condition) []domain.ConditionCategory {
	seen := make(map[domain.ConditionCategory]bool, len(conditions))
	for _, c := range conditions {
		seen[c.Category] = true
	}
	var out []domain.ConditionCategory
	for _, cat := range domain.Categories {
		if seen[cat] {
			out = append(out, cat)
		}
	}
	return out
}

func cloneCondition(c domain.Condition) domain.Condition {
	c.BeneficialFoods = append([]string(nil), c.BeneficialFoods...)
	c.AvoidFoods = append([]string(nil), c.AvoidFoods...)
	c.KeyNutrients = append([]string(nil), c.KeyNutrients...)
	return c
}

// itemKey is the identity used to compare foods and nutrients across conditions.
func itemKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
