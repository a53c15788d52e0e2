package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint
}

// CheckPow2 returns PowerOfTwoError, annotated with name, if number is not a power
// of two. Zero counts as a power of two.
func CheckPow2[T Number](number T, name string) error {
	if number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

// AlignUp rounds value up to the nearest multiple of alignment. alignment must be
// a power of two.
func AlignUp(value int, alignment uint) int {
	mask := int(alignment) - 1
	return (value + mask) &^ mask
}

// AlignDown rounds value down to the nearest multiple of alignment. alignment must
// be a power of two.
func AlignDown(value int, alignment uint) int {
	return value &^ (int(alignment) - 1)
}
