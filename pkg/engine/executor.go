// Package engine interprets macros: it evaluates condition sets, executes
// action trees against a Resolver and aggregates dice command text.
//
// The engine is stateless. Every mutation goes through the caller's
// Resolver, and a single call always runs to completion; problems with the
// macro data are reported as warnings instead of errors.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/jwebster45206/macro-engine/pkg/macro"
)

// MaxChoiceDepth bounds nested show-choice recursion
const MaxChoiceDepth = 32

// Selection is the answer of a ChooseFunc. Option, when non-nil, is used
// directly; otherwise Index selects from the offered options.
type Selection struct {
	Index  int
	Option *macro.ChoiceOption
}

// SelectIndex selects the option at i
func SelectIndex(i int) Selection {
	return Selection{Index: i}
}

// ChooseFunc decides a show-choice synchronously. Returning false defers to
// the next strategy.
type ChooseFunc func(action *macro.Action, options []macro.ChoiceOption) (Selection, bool)

// ChoiceSequence answers show-choices with indices in order. Once they run
// out it defers, so the next strategy decides.
func ChoiceSequence(indices []int) ChooseFunc {
	next := 0
	return func(_ *macro.Action, _ []macro.ChoiceOption) (Selection, bool) {
		if next >= len(indices) {
			return Selection{}, false
		}
		i := indices[next]
		next++
		return SelectIndex(i), true
	}
}

// Prompter is an interactive collaborator asked to decide a show-choice when
// no ChooseFunc answered. It is never consulted in preview mode.
type Prompter interface {
	PromptChoice(question string, options []macro.ChoiceOption) (int, bool)
}

// Options tunes a single execution
type Options struct {
	// Preview runs the action tree for its text effects only.
	// SetValue is never invoked in preview mode.
	Preview      bool
	ChooseOption ChooseFunc
	Prompter     Prompter
}

// Result is the output of a macro execution
type Result struct {
	CommandEffects CommandEffects `json:"commandEffects"`
	Warnings       []string       `json:"warnings"`
}

// NewResult returns an empty result
func NewResult() *Result {
	return &Result{
		CommandEffects: NewCommandEffects(),
		Warnings:       []string{},
	}
}

// Engine executes macros. It holds no per-call state and is safe to share.
type Engine struct {
	logger *slog.Logger
}

// New creates an engine that logs warnings to logger
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{logger: logger}
}

// warn records msg on res (when non-nil) and logs it
func (e *Engine) warn(res *Result, msg string, attrs ...any) {
	if res != nil {
		res.Warnings = append(res.Warnings, msg)
	}
	e.logger.Warn("Macro warning", append([]any{"warning", msg}, attrs...)...)
}

// execution carries the per-call state threaded through recursion
type execution struct {
	engine   *Engine
	resolver Resolver
	opts     Options
	res      *Result
}

// ExecuteMacro walks the macro body against resolver. A nil resolver is
// allowed; every action that needs host state then warns.
// The macro's own pre-guard is not enforced here; callers gate on it with
// EvaluateMacroConditions or CollectConditionFailures.
func (e *Engine) ExecuteMacro(m *macro.Macro, resolver Resolver, opts Options) Result {
	res := NewResult()
	if m == nil {
		e.warn(res, "macro is nil")
		return *res
	}
	if resolver == nil {
		resolver = nopResolver{}
	}

	e.ExecuteMacroBlocks(m.Blocks, resolver, opts, res)

	e.logger.Debug("Macro executed",
		"preview", opts.Preview,
		"blocks", len(m.Blocks),
		"warnings", len(res.Warnings))
	return *res
}

// CollectCommandEffects runs the macro in preview mode to materialize its
// command text. resolver is only read for condition blocks and may be nil.
func (e *Engine) CollectCommandEffects(m *macro.Macro, resolver Resolver, opts Options) CommandEffects {
	opts.Preview = true
	return e.ExecuteMacro(m, readOnly(resolver), opts).CommandEffects
}

// ExecuteMacroBlocks runs a block sequence. A condition block guards every
// action block that immediately follows it, up to the next condition block.
// Action blocks with no preceding guard always run.
func (e *Engine) ExecuteMacroBlocks(blocks []macro.Block, resolver Resolver, opts Options, res *Result) {
	if res == nil {
		res = NewResult()
	}
	if resolver == nil {
		resolver = nopResolver{}
	}
	x := &execution{engine: e, resolver: resolver, opts: opts, res: res}

	for i := 0; i < len(blocks); {
		block := blocks[i]
		switch block.Type {
		case macro.BlockCondition:
			matched := true
			if block.Conditions != nil {
				matched = e.EvaluateMacroConditions(*block.Conditions, resolver, res)
			}

			j := i + 1
			for j < len(blocks) && blocks[j].Type != macro.BlockCondition {
				j++
			}
			if matched {
				for k := i + 1; k < j; k++ {
					x.runBlock(blocks[k], k)
				}
			} else {
				e.logger.Debug("Condition block did not match",
					"block_id", block.ID,
					"skipped", j-i-1)
			}
			i = j

		default:
			x.runBlock(block, i)
			i++
		}
	}
}

func (x *execution) runBlock(block macro.Block, index int) {
	if block.Type != macro.BlockAction {
		x.engine.warn(x.res, fmt.Sprintf("block %d has unknown type %q", index, block.Type))
		return
	}
	if block.Action == nil {
		x.engine.warn(x.res, fmt.Sprintf("action block %d has no action", index))
		return
	}
	x.executeAction(*block.Action, 0)
}

// readOnly strips the write path from every state a resolver returns
type readOnlyResolver struct {
	inner Resolver
}

func readOnly(r Resolver) Resolver {
	if r == nil {
		return nopResolver{}
	}
	return readOnlyResolver{inner: r}
}

func (r readOnlyResolver) TargetValue(t macro.Target) (float64, bool) {
	return r.inner.TargetValue(t)
}

func (r readOnlyResolver) TargetState(t macro.Target) (*TargetState, bool) {
	st, ok := r.inner.TargetState(t)
	if !ok || st == nil {
		return nil, false
	}
	copied := *st
	copied.SetValue = nil
	return &copied, true
}
