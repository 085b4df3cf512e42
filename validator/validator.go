// Package validator checks machine definitions for problems that Config.Validate
// does not catch: unreachable states, emitted events no state handles,
// candidates that can never be chosen and similar.
package validator

import (
	"fmt"
	"strings"

	"github.com/amp-labs/amp-fsm/fsm"
)

// ValidationResult contains the results of validating a definition.
type ValidationResult struct {
	Valid       bool
	Errors      []ValidationError
	Warnings    []ValidationWarning
	Suggestions []Suggestion
}

// ValidationError represents a validation error with an optional fix.
type ValidationError struct {
	Code     string // e.g. "UNREACHABLE_STATE"
	Message  string
	Location Location
	Fix      *Fix
}

// ValidationWarning represents a non-critical issue.
type ValidationWarning struct {
	Code     string
	Message  string
	Location Location
	Fix      *Fix
}

// Suggestion provides an improvement recommendation.
type Suggestion struct {
	Message string
	Example string
}

// Location identifies where an issue occurred.
type Location struct {
	File  string
	State string
	Event string
}

// Validate runs the default rules against def.
func Validate(def fsm.Definition) ValidationResult {
	return ValidateWithRules(def, DefaultRules())
}

// ValidateFile loads a YAML definition from path and validates it.
func ValidateFile(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, false)
}

// ValidateFileStrict is ValidateFile with warnings treated as errors.
func ValidateFileStrict(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, true)
}

// ValidateFileWithOptions loads a YAML definition from path and validates it.
func ValidateFileWithOptions(path string, strict bool) (ValidationResult, error) {
	def, err := fsm.LoadDefinition(path)
	if err != nil {
		return ValidationResult{
			Valid: false,
			Errors: []ValidationError{
				{
					Code:     "DEFINITION_LOAD_FAILED",
					Message:  fmt.Sprintf("Failed to load definition: %v", err),
					Location: Location{File: path},
				},
			},
		}, err
	}

	var result ValidationResult
	if strict {
		result = ValidateWithRulesStrict(def, DefaultRules())
	} else {
		result = Validate(def)
	}

	for i := range result.Errors {
		if result.Errors[i].Location.File == "" {
			result.Errors[i].Location.File = path
		}
	}

	for i := range result.Warnings {
		if result.Warnings[i].Location.File == "" {
			result.Warnings[i].Location.File = path
		}
	}

	return result, nil
}

// ValidateWithRules validates using custom rules.
func ValidateWithRules(def fsm.Definition, rules []Rule) ValidationResult {
	result := ValidationResult{Valid: true}

	for _, rule := range rules {
		ruleResult := rule.Check(def)
		result.Errors = append(result.Errors, ruleResult.Errors...)
		result.Warnings = append(result.Warnings, ruleResult.Warnings...)
	}

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	result.Suggestions = generateSuggestions(def)

	return result
}

// ValidateWithRulesStrict validates with warnings treated as errors.
func ValidateWithRulesStrict(def fsm.Definition, rules []Rule) ValidationResult {
	result := ValidateWithRules(def, rules)

	for _, warning := range result.Warnings {
		result.Errors = append(result.Errors, ValidationError(warning))
	}

	result.Warnings = nil

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	return result
}

func generateSuggestions(def fsm.Definition) []Suggestion {
	var suggestions []Suggestion

	hasJob, hasEmit := false, false

	for _, state := range def.States {
		hasJob = hasJob || state.Job != ""
		hasEmit = hasEmit || len(state.Emit) > 0
	}

	if hasJob && !hasEmit {
		suggestions = append(suggestions, Suggestion{
			Message: "Consider letting states with jobs emit an event once the job completes",
			Example: `"loading": {
    Job:  fsm.JobFunc(load),
    Emit: []fsm.Emit[*Ctx]{{Event: "LOADED"}},
    On:   map[string][]fsm.Transition[*Ctx]{"LOADED": {{Target: "ready"}}},
}`,
		})
	}

	return suggestions
}

// HasErrors returns true if the result has any errors.
func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if the result has any warnings.
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// String returns a human-readable summary.
func (r ValidationResult) String() string {
	var sb strings.Builder

	if r.Valid {
		sb.WriteString("✓ Definition is valid\n")
	} else {
		fmt.Fprintf(&sb, "✗ Definition has %d error(s)\n", len(r.Errors))

		for _, err := range r.Errors {
			writeIssue(&sb, err.Code, err.Message, err.Location, err.Fix)
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&sb, "\n⚠ %d warning(s):\n", len(r.Warnings))

		for _, warn := range r.Warnings {
			writeIssue(&sb, warn.Code, warn.Message, warn.Location, warn.Fix)
		}
	}

	if len(r.Suggestions) > 0 {
		fmt.Fprintf(&sb, "\n%d suggestion(s):\n", len(r.Suggestions))

		for _, s := range r.Suggestions {
			fmt.Fprintf(&sb, "  %s\n", s.Message)
		}
	}

	return sb.String()
}

func writeIssue(sb *strings.Builder, code, message string, loc Location, fix *Fix) {
	fmt.Fprintf(sb, "  [%s] %s", code, message)

	if loc.State != "" {
		fmt.Fprintf(sb, " (state: %s)", loc.State)
	}

	sb.WriteString("\n")

	if fix != nil {
		fmt.Fprintf(sb, "    Fix: %s\n", fix.Description)
	}
}
