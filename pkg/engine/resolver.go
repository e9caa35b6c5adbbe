package engine

import (
	"math"

	"github.com/jwebster45206/macro-engine/pkg/macro"
)

// TargetState is a resolved quantity with bounds and an optional write path.
// SetValue is nil for read-only targets.
type TargetState struct {
	Value    float64
	Min      float64
	Max      float64
	SetValue func(next float64) error
}

// Clamp bounds n to [Min, Max]
func (s *TargetState) Clamp(n float64) float64 {
	lo, hi := s.Min, s.Max
	if math.IsNaN(lo) {
		lo = math.Inf(-1)
	}
	if math.IsNaN(hi) {
		hi = math.Inf(1)
	}
	return math.Min(math.Max(n, lo), hi)
}

// Resolver binds Target references to host quantities.
// A false return is the only signal for an invalid or unknown target.
type Resolver interface {
	TargetValue(t macro.Target) (float64, bool)
	TargetState(t macro.Target) (*TargetState, bool)
}

// TargetRepository is the narrow lookup surface a host implements.
// Each lookup returns false when the id is unknown.
type TargetRepository interface {
	LookupAbility(id string) (*TargetState, bool)
	LookupResource(id string) (*TargetState, bool)
	LookupBuff(id string) (*TargetState, bool)
}

// RepositoryResolver adapts a TargetRepository into a Resolver by
// dispatching on the target kind
type RepositoryResolver struct {
	repo TargetRepository
}

// Ensure RepositoryResolver implements Resolver
var _ Resolver = (*RepositoryResolver)(nil)

// NewRepositoryResolver wraps repo
func NewRepositoryResolver(repo TargetRepository) *RepositoryResolver {
	return &RepositoryResolver{repo: repo}
}

func (r *RepositoryResolver) TargetValue(t macro.Target) (float64, bool) {
	st, ok := r.TargetState(t)
	if !ok {
		return 0, false
	}
	if math.IsNaN(st.Value) || math.IsInf(st.Value, 0) {
		return 0, false
	}
	return st.Value, true
}

func (r *RepositoryResolver) TargetState(t macro.Target) (*TargetState, bool) {
	if r == nil || r.repo == nil || t.ID == "" {
		return nil, false
	}

	var (
		st *TargetState
		ok bool
	)
	switch t.Kind {
	case macro.KindAbility:
		st, ok = r.repo.LookupAbility(t.ID)
	case macro.KindResource:
		st, ok = r.repo.LookupResource(t.ID)
	case macro.KindBuff:
		st, ok = r.repo.LookupBuff(t.ID)
	default:
		return nil, false
	}
	if !ok || st == nil {
		return nil, false
	}
	return st, true
}

// nopResolver resolves nothing. CollectCommandEffects runs against it so no
// host state can be reached.
type nopResolver struct{}

func (nopResolver) TargetValue(macro.Target) (float64, bool)        { return 0, false }
func (nopResolver) TargetState(macro.Target) (*TargetState, bool) { return nil, false }
