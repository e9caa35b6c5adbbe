package runner

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/macro-engine/internal/handlers"
)

// TestSuite defines a complete integration test scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name      string     `json:"name"`
	Character string     `json:"character,omitempty"` // Character spec id, used for regular tests
	Steps     []TestStep `json:"steps,omitempty"`     // Used for regular tests
	Cases     []string   `json:"cases,omitempty"`     // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep defines a single macro request and its expected outcomes.
// A step with reset set replaces the session with a fresh one built from
// the suite's character; its expectations are checked against that session.
type TestStep struct {
	Name         string                `json:"name,omitempty"`
	Reset        bool                  `json:"reset,omitempty"`
	Request      handlers.MacroRequest `json:"request"`
	Expectations Expectations          `json:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	Status *int `json:"status,omitempty"` // HTTP status, 200 when unset

	// Character state after the step
	HP        *int               `json:"hp,omitempty"`
	Resources map[string]float64 `json:"resources,omitempty"`
	Charges   map[string]int     `json:"charges,omitempty"`
	Buffs     map[string]int     `json:"buffs,omitempty"` // active instance counts

	// Macro output
	JudgeCommand   *string  `json:"judge_command,omitempty"`
	DamageCommand  *string  `json:"damage_command,omitempty"`
	EffectsContain []string `json:"effects_contain,omitempty"`
	Warnings       *int     `json:"warnings,omitempty"`
	ExpiredBuffs   []string `json:"expired_buffs,omitempty"`

	// Rejections
	FailedTargets []string `json:"failed_targets,omitempty"` // 409 condition failures, by target name
	ErrorsContain []string `json:"errors_contain,omitempty"` // 422 validation errors
}

// HasState reports whether any character state expectation is set
func (e Expectations) HasState() bool {
	return e.HP != nil || len(e.Resources) > 0 || len(e.Charges) > 0 || len(e.Buffs) > 0
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName  string
	StepName  string
	Success   bool
	Error     error
	Duration  time.Duration
	RequestID string
	IsReset   bool // True if this was a reset step (should not count toward pass/fail metrics)
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	Session  uuid.UUID // ID of the last character session used for this test
}
