package recursion

import (
	"fmt"
	"strings"
)

const (
	DefaultMaxExecutions                = 250
	DefaultMaxExecutionsWithoutBuiltins = 200
	DefaultMaxFunctionRecursionLevel    = 5
	DefaultMaxUntilExecutionUnique      = 50
)

// Settings are the execution budgets. They are read once when a guard is
// built. All comparisons are strict: a budget of N allows N executions.
type Settings struct {
	// MaxExecutions is the absolute ceiling on pushes over the guard's
	// lifetime, builtins included.
	MaxExecutions int `yaml:"max_executions"`
	// MaxExecutionsWithoutBuiltins caps pushes once builtin, container and
	// generator executions have been let through.
	MaxExecutionsWithoutBuiltins int `yaml:"max_executions_without_builtins"`
	// MaxFunctionRecursionLevel is the nesting depth past which a target
	// already on the current path is refused.
	MaxFunctionRecursionLevel int `yaml:"max_function_recursion_level"`
	// MaxUntilExecutionUnique is the number of distinct targets after which
	// revisiting any seen target is refused.
	MaxUntilExecutionUnique int `yaml:"max_until_execution_unique"`
}

// DefaultSettings returns the stock budgets.
func DefaultSettings() Settings {
	return Settings{
		MaxExecutions:                DefaultMaxExecutions,
		MaxExecutionsWithoutBuiltins: DefaultMaxExecutionsWithoutBuiltins,
		MaxFunctionRecursionLevel:    DefaultMaxFunctionRecursionLevel,
		MaxUntilExecutionUnique:      DefaultMaxUntilExecutionUnique,
	}
}

// ValidationError aggregates settings validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "recursion: invalid settings"
	}
	var b strings.Builder
	b.WriteString("recursion settings validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// Validate rejects non-positive budgets.
func (s Settings) Validate() error {
	var errs ValidationError
	for _, field := range []struct {
		name  string
		value int
	}{
		{"max_executions", s.MaxExecutions},
		{"max_executions_without_builtins", s.MaxExecutionsWithoutBuiltins},
		{"max_function_recursion_level", s.MaxFunctionRecursionLevel},
		{"max_until_execution_unique", s.MaxUntilExecutionUnique},
	} {
		if field.value <= 0 {
			errs.Issues = append(errs.Issues, fmt.Sprintf("%s must be positive, got %d", field.name, field.value))
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

// WithDefaults fills zero fields from DefaultSettings. Negative values are
// kept so Validate can reject them.
func (s Settings) WithDefaults() Settings {
	def := DefaultSettings()
	if s.MaxExecutions == 0 {
		s.MaxExecutions = def.MaxExecutions
	}
	if s.MaxExecutionsWithoutBuiltins == 0 {
		s.MaxExecutionsWithoutBuiltins = def.MaxExecutionsWithoutBuiltins
	}
	if s.MaxFunctionRecursionLevel == 0 {
		s.MaxFunctionRecursionLevel = def.MaxFunctionRecursionLevel
	}
	if s.MaxUntilExecutionUnique == 0 {
		s.MaxUntilExecutionUnique = def.MaxUntilExecutionUnique
	}
	return s
}
