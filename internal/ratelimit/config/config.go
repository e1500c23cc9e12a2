package config

import (
	"slices"
	"time"

	"github.com/go-playground/validator/v10"

	"confide/internal/ratelimit/models"
	dErrors "confide/pkg/domain-errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds the rate class table before it is frozen into Rules.
type Config struct {
	// Classes is the quota table, one entry per class name.
	Classes []models.RateClass `validate:"required,min=1,dive"`

	// Fallback is the class for absent, empty or unrecognized action labels.
	Fallback models.ClassName `validate:"required"`
}

// DefaultConfig returns the production quota table.
func DefaultConfig() *Config {
	return &Config{
		Classes: []models.RateClass{
			{Name: models.ClassPost, Window: 60 * time.Second, MaxCount: 5},
			{Name: models.ClassComment, Window: 30 * time.Second, MaxCount: 10},
			{Name: models.ClassReaction, Window: 10 * time.Second, MaxCount: 30},
		},
		Fallback: models.ClassReaction,
	}
}

// Validate checks field constraints, duplicate names and that the fallback exists.
func (c *Config) Validate() error {
	if c == nil {
		return dErrors.New(dErrors.CodeValidation, "rate limit config is required")
	}
	if err := validate.Struct(c); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid rate limit config")
	}

	seen := make(map[models.ClassName]struct{}, len(c.Classes))
	for _, class := range c.Classes {
		if _, dup := seen[class.Name]; dup {
			return dErrors.New(dErrors.CodeValidation, "duplicate rate class: "+class.Name.String())
		}
		seen[class.Name] = struct{}{}
	}
	if _, ok := seen[c.Fallback]; !ok {
		return dErrors.New(dErrors.CodeValidation, "fallback rate class is not defined: "+c.Fallback.String())
	}
	return nil
}

// Rules is the frozen, read-only quota table shared by every request.
type Rules struct {
	classes  map[models.ClassName]models.RateClass
	fallback models.RateClass
}

// NewRules validates cfg and freezes it. Later changes to cfg do not affect the result.
func NewRules(cfg *Config) (*Rules, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	classes := make(map[models.ClassName]models.RateClass, len(cfg.Classes))
	for _, class := range cfg.Classes {
		classes[class.Name] = class
	}
	return &Rules{
		classes:  classes,
		fallback: classes[cfg.Fallback],
	}, nil
}

// DefaultRules returns the frozen default table.
func DefaultRules() *Rules {
	rules, err := NewRules(DefaultConfig())
	if err != nil {
		panic(err) // DefaultConfig is a constant table
	}
	return rules
}

// Classify maps a client-supplied label to a class by exact match.
// Anything else, including the empty string, gets the fallback class.
func (r *Rules) Classify(action string) models.RateClass {
	if class, ok := r.classes[models.ClassName(action)]; ok {
		return class
	}
	return r.fallback
}

// Classes returns a copy of the table ordered by name.
func (r *Rules) Classes() []models.RateClass {
	out := make([]models.RateClass, 0, len(r.classes))
	for _, class := range r.classes {
		out = append(out, class)
	}
	slices.SortFunc(out, func(a, b models.RateClass) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return out
}

// LongestWindow is the largest window in the table. Events older than this
// can no longer influence any decision.
func (r *Rules) LongestWindow() time.Duration {
	var longest time.Duration
	for _, class := range r.classes {
		longest = max(longest, class.Window)
	}
	return longest
}
