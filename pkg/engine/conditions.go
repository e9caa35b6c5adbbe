package engine

import (
	"fmt"

	"github.com/jwebster45206/macro-engine/pkg/macro"
)

// Failure describes one condition that did not hold
type Failure struct {
	Condition     macro.Condition `json:"condition"`
	ActualValue   *float64        `json:"actualValue"`
	ExpectedValue *float64        `json:"expectedValue"`
	Operator      macro.Operator  `json:"operator"`
}

// compare applies op to left and right. ok is false for unsupported operators.
func compare(op macro.Operator, left, right float64) (result bool, ok bool) {
	switch op {
	case macro.OpEqual:
		return left == right, true
	case macro.OpNotEqual:
		return left != right, true
	case macro.OpGreater:
		return left > right, true
	case macro.OpGreaterEqual:
		return left >= right, true
	case macro.OpLess:
		return left < right, true
	case macro.OpLessEqual:
		return left <= right, true
	}
	return false, false
}

// combine folds next into acc with the connector
func combine(acc bool, conn macro.Connector, next bool) bool {
	if conn == macro.ConnectorOr {
		return acc || next
	}
	return acc && next
}

// EvaluateCondition evaluates a single condition. Unresolvable targets,
// non-numeric values and unsupported operators warn and evaluate false.
func (e *Engine) EvaluateCondition(cond macro.Condition, resolver Resolver, res *Result) bool {
	matched, _ := e.evaluateCondition(cond, resolver, res)
	return matched
}

func (e *Engine) evaluateCondition(cond macro.Condition, resolver Resolver, res *Result) (bool, Failure) {
	failure := Failure{Condition: cond, Operator: cond.Operator}

	if resolver == nil {
		resolver = nopResolver{}
	}
	left, leftOK := resolver.TargetValue(cond.Target)
	if leftOK {
		failure.ActualValue = &left
	}
	right, rightOK := cond.Value.Float()
	if rightOK {
		failure.ExpectedValue = &right
	}

	if !leftOK {
		e.warn(res, fmt.Sprintf("condition target %s could not be resolved", cond.Target.Name()),
			"kind", cond.Target.Kind, "id", cond.Target.ID)
		return false, failure
	}
	if !rightOK {
		e.warn(res, fmt.Sprintf("condition value %q for %s is not a number", cond.Value.String(), cond.Target.Name()),
			"kind", cond.Target.Kind, "id", cond.Target.ID)
		return false, failure
	}

	matched, ok := compare(cond.Operator, left, right)
	if !ok {
		e.warn(res, fmt.Sprintf("unsupported operator %q", cond.Operator),
			"kind", cond.Target.Kind, "id", cond.Target.ID)
		return false, failure
	}
	return matched, failure
}

// EvaluateConditionGroup left-folds every condition in the group.
// All conditions are evaluated so diagnostics see each one.
func (e *Engine) EvaluateConditionGroup(group macro.ConditionGroup, resolver Resolver, res *Result) bool {
	matched, _ := e.evaluateGroup(group, resolver, res)
	return matched
}

func (e *Engine) evaluateGroup(group macro.ConditionGroup, resolver Resolver, res *Result) (bool, []Failure) {
	if len(group.Conditions) == 0 {
		return true, nil
	}

	var (
		acc      bool
		failures []Failure
	)
	for i, cond := range group.Conditions {
		matched, failure := e.evaluateCondition(cond, resolver, res)
		if !matched {
			failures = append(failures, failure)
		}
		if i == 0 {
			acc = matched
			continue
		}
		acc = combine(acc, group.PairConnector(i-1), matched)
	}
	return acc, failures
}

// EvaluateMacroConditions left-folds the groups of a condition set.
// An empty set is true.
func (e *Engine) EvaluateMacroConditions(conds macro.Conditions, resolver Resolver, res *Result) bool {
	matched, _ := e.evaluateConditions(conds, resolver, res)
	return matched
}

func (e *Engine) evaluateConditions(conds macro.Conditions, resolver Resolver, res *Result) (bool, []Failure) {
	if conds.IsEmpty() {
		return true, nil
	}

	var (
		acc      bool
		failures []Failure
	)
	for i, group := range conds.Groups {
		matched, groupFailures := e.evaluateGroup(group, resolver, res)
		if !matched {
			failures = append(failures, groupFailures...)
		}
		if i == 0 {
			acc = matched
			continue
		}
		acc = combine(acc, conds.GroupConnector(i-1), matched)
	}
	return acc, failures
}

// CollectConditionFailures reports the unmet conditions of every group whose
// own fold was false. It returns an empty slice when the whole set matches.
// The result is informational and not a strict complement of the boolean.
func (e *Engine) CollectConditionFailures(conds macro.Conditions, resolver Resolver, res *Result) []Failure {
	matched, failures := e.evaluateConditions(conds, resolver, res)
	if matched || failures == nil {
		return []Failure{}
	}
	return failures
}
