package sieve

import (
	"fmt"
	"strconv"
)

// ExistingSetPolicy decides what [Cache.Set] does to the visited bit of
// a key that is already resident.
type ExistingSetPolicy uint8

const (
	// SkipVisitedChange leaves the visited bit untouched. This is the default.
	SkipVisitedChange ExistingSetPolicy = iota
	// ForceVisitedFalse clears the visited bit, exposing the entry to the
	// next eviction scan even if it was just read.
	ForceVisitedFalse
	// ForceVisitedTrue sets the visited bit, treating the update as a read.
	ForceVisitedTrue
)

func (p ExistingSetPolicy) valid() bool {
	switch p {
	case SkipVisitedChange, ForceVisitedFalse, ForceVisitedTrue:
		return true
	default:
		return false
	}
}

func (p ExistingSetPolicy) String() string {
	switch p {
	case SkipVisitedChange:
		return "skip"
	case ForceVisitedFalse:
		return "false"
	case ForceVisitedTrue:
		return "true"
	default:
		return "ExistingSetPolicy(" + strconv.Itoa(int(p)) + ")"
	}
}

// ParseExistingSetPolicy maps the names produced by
// [ExistingSetPolicy.String] back to their policy.
func ParseExistingSetPolicy(name string) (ExistingSetPolicy, error) {
	for _, p := range []ExistingSetPolicy{
		SkipVisitedChange, ForceVisitedFalse, ForceVisitedTrue,
	} {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown name %q", ErrInvalidPolicy, name)
}

type options struct {
	policy ExistingSetPolicy
}

// Option configures a [Cache] constructed by [New].
type Option func(*options)

// WithExistingSetPolicy selects how updates to resident keys affect
// their visited bit. Unknown values make [New] fail with [ErrInvalidPolicy].
func WithExistingSetPolicy(policy ExistingSetPolicy) Option {
	return func(o *options) { o.policy = policy }
}
