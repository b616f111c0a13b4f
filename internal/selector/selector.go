// Package selector maps input size to an initial model and its fallback tail.
package selector

import (
	"errors"
	"fmt"
)

// Tier assigns Model to inputs strictly longer than MinLength.
type Tier struct {
	MinLength int
	Model     string
}

// DefaultModels is the master list, highest capability first.
var DefaultModels = []string{
	"google/gemini-2.5-pro-exp-03-25",
	"qwen/qwen3-coder:free",
	"openai/gpt-oss-20b:free",
	"deepseek/deepseek-chat-v3-0324:free",
	"mistralai/mistral-small-3.2-24b-instruct:free",
	"google/gemma-3n-e2b-it:free",
	"mistralai/mistral-7b-instruct:free",
}

// DefaultTiers are the five size thresholds, largest first.
var DefaultTiers = []Tier{
	{MinLength: 300_000, Model: DefaultModels[0]},
	{MinLength: 150_000, Model: DefaultModels[1]},
	{MinLength: 40_000, Model: DefaultModels[2]},
	{MinLength: 8_000, Model: DefaultModels[3]},
	{MinLength: 0, Model: DefaultModels[4]},
}

// Selector holds an immutable model ordering.
type Selector struct {
	models []string
	index  map[string]int
	tiers  []Tier
}

// New validates models and tiers. Tiers must be ordered by descending
// MinLength and map to same-or-less capable models as the threshold drops.
// The last tier is the catch-all for short inputs.
func New(models []string, tiers []Tier) (*Selector, error) {
	if len(models) == 0 {
		return nil, errors.New("model list must not be empty")
	}
	if len(tiers) == 0 {
		return nil, errors.New("tier list must not be empty")
	}

	s := &Selector{
		models: append([]string(nil), models...),
		index:  make(map[string]int, len(models)),
		tiers:  append([]Tier(nil), tiers...),
	}
	for i, m := range s.models {
		if m == "" {
			return nil, fmt.Errorf("model %d has an empty name", i)
		}
		if _, dup := s.index[m]; dup {
			return nil, fmt.Errorf("model %q listed twice", m)
		}
		s.index[m] = i
	}

	prevIdx := -1
	for i, t := range s.tiers {
		idx, ok := s.index[t.Model]
		if !ok {
			return nil, fmt.Errorf("tier %d references unknown model %q", i, t.Model)
		}
		if i > 0 && t.MinLength >= s.tiers[i-1].MinLength {
			return nil, fmt.Errorf("tier %d: thresholds must be strictly descending", i)
		}
		if idx < prevIdx {
			return nil, fmt.Errorf("tier %d: model %q is more capable than a tier for longer input", i, t.Model)
		}
		prevIdx = idx
	}

	return s, nil
}

// MustDefault returns the selector built from DefaultModels and DefaultTiers.
func MustDefault() *Selector {
	s, err := New(DefaultModels, DefaultTiers)
	if err != nil {
		panic(err)
	}
	return s
}

// SelectTier picks the initial model for an input of totalLength runes.
func (s *Selector) SelectTier(totalLength int) string {
	for _, t := range s.tiers {
		if totalLength > t.MinLength {
			return t.Model
		}
	}
	return s.tiers[len(s.tiers)-1].Model
}

// TierAndBelow returns model and every less capable model after it.
// Unknown models yield the full list.
func (s *Selector) TierAndBelow(model string) []string {
	idx, ok := s.index[model]
	if !ok {
		idx = 0
	}
	return append([]string(nil), s.models[idx:]...)
}

// Index returns the position of model in the master list, or -1.
func (s *Selector) Index(model string) int {
	if idx, ok := s.index[model]; ok {
		return idx
	}
	return -1
}

// Models returns a copy of the master list.
func (s *Selector) Models() []string {
	return append([]string(nil), s.models...)
}

// Tiers returns a copy of the configured thresholds.
func (s *Selector) Tiers() []Tier {
	return append([]Tier(nil), s.tiers...)
}
