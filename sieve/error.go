package sieve

import "fmt"

type constError string

func (errStr constError) Error() string { return string(errStr) }

const (
	// ErrInvalidCapacity is returned from [New] when the capacity is
	// below 1 or above [MaxCapacity].
	ErrInvalidCapacity = constError("invalid capacity")
	// ErrInvalidPolicy is returned from [New] when the
	// [ExistingSetPolicy] is not one of the declared values.
	ErrInvalidPolicy = constError("invalid existing-set policy")
)

func capacityError(capacity int) error {
	return fmt.Errorf(
		"%w: must be within [1, %d] but %d was requested",
		ErrInvalidCapacity, uint64(MaxCapacity), capacity)
}

func policyError(policy ExistingSetPolicy) error {
	return fmt.Errorf(
		"%w: %d is not a valid existing-set policy",
		ErrInvalidPolicy, uint8(policy))
}
