package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/macro-engine/internal/handlers"
	"github.com/jwebster45206/macro-engine/pkg/actor"
	"github.com/jwebster45206/macro-engine/pkg/engine"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running macro-engine API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
	CharacterOverride string // If set, overrides the character for all test cases
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 30 * time.Second},
		Timeout:           10 * time.Second,
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	return loadWithExpansion(filename, casesDir, nil)
}

func loadWithExpansion(filename, casesDir string, seen []string) ([]TestJob, error) {
	if slices.Contains(seen, filename) {
		return nil, fmt.Errorf("sequence cycle through %s", filename)
	}

	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		subJobs, err := loadWithExpansion(casePath, casesDir, append(seen, filename))
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

func (r *Runner) character(suite TestSuite) string {
	if r.CharacterOverride != "" {
		return r.CharacterOverride
	}
	return suite.Character
}

// RunSuite executes a complete test suite on a fresh character session
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	characterID := r.character(suite)
	c, err := CreateSession(ctx, r.Client, r.BaseURL, characterID)
	if err != nil {
		result.Error = fmt.Errorf("failed to create session for %s: %w", characterID, err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.Session = c.SessionID

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)

		var stepResult TestResult
		if step.Reset {
			stepResult = r.resetStep(ctx, &result.Session, characterID, step)
		} else {
			stepResult = r.runStep(ctx, result.Session, step)
		}
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	if err := DeleteSession(ctx, r.Client, r.BaseURL, result.Session); err != nil {
		r.Logger("    Warning: failed to delete session %s: %v", result.Session, err)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// resetStep replaces the session with a fresh one built from the character
func (r *Runner) resetStep(ctx context.Context, sessionID *uuid.UUID, characterID string, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name, IsReset: true}

	if err := DeleteSession(ctx, r.Client, r.BaseURL, *sessionID); err != nil {
		result.Error = fmt.Errorf("failed to reset session: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	c, err := CreateSession(ctx, r.Client, r.BaseURL, characterID)
	if err != nil {
		result.Error = fmt.Errorf("failed to reset session: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	*sessionID = c.SessionID

	if err := checkState(step.Expectations, c); err != nil {
		result.Error = fmt.Errorf("reset expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// runStep posts the step's macro request and checks expectations
func (r *Runner) runStep(ctx context.Context, sessionID uuid.UUID, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}

	stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	reply, err := PostMacro(stepCtx, r.Client, r.BaseURL, sessionID, step.Request)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}
	result.RequestID = reply.RequestID

	if err := r.checkReply(stepCtx, sessionID, step.Expectations, reply); err != nil {
		result.Error = fmt.Errorf("expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// checkReply dispatches on the response status
func (r *Runner) checkReply(ctx context.Context, sessionID uuid.UUID, exp Expectations, reply *MacroReply) error {
	wantStatus := http.StatusOK
	if exp.Status != nil {
		wantStatus = *exp.Status
	}
	if reply.Status != wantStatus {
		return fmt.Errorf("expected status %d, got %d: %s", wantStatus, reply.Status, strings.TrimSpace(string(reply.Body)))
	}

	switch reply.Status {
	case http.StatusOK:
		var resp handlers.MacroResponse
		if err := json.Unmarshal(reply.Body, &resp); err != nil {
			return fmt.Errorf("failed to decode macro response: %w", err)
		}
		if err := checkResponse(exp, &resp); err != nil {
			return err
		}
		if resp.Character == nil {
			return fmt.Errorf("macro response has no character")
		}
		return checkState(exp, resp.Character)

	case http.StatusConflict:
		var resp handlers.ConditionFailureResponse
		if err := json.Unmarshal(reply.Body, &resp); err != nil {
			return fmt.Errorf("failed to decode condition failures: %w", err)
		}
		if err := checkFailures(exp, resp.Failures); err != nil {
			return err
		}

	case http.StatusUnprocessableEntity:
		var resp handlers.ValidationErrorResponse
		if err := json.Unmarshal(reply.Body, &resp); err != nil {
			return fmt.Errorf("failed to decode validation errors: %w", err)
		}
		joined := strings.Join(resp.Errors, "\n")
		for _, want := range exp.ErrorsContain {
			if !strings.Contains(joined, want) {
				return fmt.Errorf("expected validation errors to contain '%s', got %v", want, resp.Errors)
			}
		}
	}

	// State after a rejection is read back from the session
	if exp.HasState() {
		c, err := GetSession(ctx, r.Client, r.BaseURL, sessionID)
		if err != nil {
			return err
		}
		return checkState(exp, c)
	}
	return nil
}

// checkResponse validates command text, effects and warnings
func checkResponse(exp Expectations, resp *handlers.MacroResponse) error {
	if exp.JudgeCommand != nil && resp.Commands.Judge != *exp.JudgeCommand {
		return fmt.Errorf("expected judge command %q, got %q", *exp.JudgeCommand, resp.Commands.Judge)
	}
	if exp.DamageCommand != nil && resp.Commands.Damage != *exp.DamageCommand {
		return fmt.Errorf("expected damage command %q, got %q", *exp.DamageCommand, resp.Commands.Damage)
	}

	if len(exp.EffectsContain) > 0 {
		effects := strings.ToLower(strings.Join(resp.Effects.EffectTexts, "\n"))
		for _, want := range exp.EffectsContain {
			if !strings.Contains(effects, strings.ToLower(want)) {
				return fmt.Errorf("expected effects to contain '%s', got %v", want, resp.Effects.EffectTexts)
			}
		}
	}

	if exp.Warnings != nil && len(resp.Warnings) != *exp.Warnings {
		return fmt.Errorf("expected %d warnings, got %d: %v", *exp.Warnings, len(resp.Warnings), resp.Warnings)
	}

	if exp.ExpiredBuffs != nil {
		got := make([]string, 0, len(resp.ExpiredBuffs))
		for _, b := range resp.ExpiredBuffs {
			got = append(got, b.BuffID)
		}
		want := slices.Clone(exp.ExpiredBuffs)
		slices.Sort(got)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			return fmt.Errorf("expected expired buffs %v, got %v", want, got)
		}
	}
	return nil
}

// checkState validates the character's hp, resources, charges and buffs
func checkState(exp Expectations, c *actor.Character) error {
	if exp.HP != nil && c.Spec.HP != *exp.HP {
		return fmt.Errorf("expected hp to be %d, got %d", *exp.HP, c.Spec.HP)
	}

	for id, want := range exp.Resources {
		r, exists := c.Spec.Resources[id]
		if !exists {
			return fmt.Errorf("expected resource %s to exist, but it doesn't", id)
		}
		if r.Value != want {
			return fmt.Errorf("expected resource %s to be %v, got %v", id, want, r.Value)
		}
	}

	for id, want := range exp.Charges {
		ab, exists := c.Ability(id)
		if !exists {
			return fmt.Errorf("expected ability %s to exist, but it doesn't", id)
		}
		if ab.Charges != want {
			return fmt.Errorf("expected ability %s to have %d charges, got %d", id, want, ab.Charges)
		}
	}

	for id, want := range exp.Buffs {
		if got := c.BuffCount(id); got != want {
			return fmt.Errorf("expected %d active %s buffs, got %d", want, id, got)
		}
	}
	return nil
}

// checkFailures matches the failed conditions by target name
func checkFailures(exp Expectations, failures []engine.Failure) error {
	got := make([]string, 0, len(failures))
	for _, f := range failures {
		got = append(got, f.Condition.Target.Name())
	}
	for _, want := range exp.FailedTargets {
		if !slices.Contains(got, want) {
			return fmt.Errorf("expected a failed condition on %s, got %v", want, got)
		}
	}
	return nil
}
