//go:build debug_sierra

package memutils

// DebugAssertionsEnabled reports whether the debug_sierra build tag is present.
const DebugAssertionsEnabled = true

// DebugValidate calls Validate on the provided object and panics if any errors are
// returned. This method no-ops unless the debug_sierra build tag is present.
func DebugValidate(validatable Validatable) {
	err := validatable.Validate()
	if err != nil {
		panic(err)
	}
}

// DebugCheckPow2 verifies that the numerical value passed in is a power of two, and
// panics if it is not. This method no-ops unless the debug_sierra build tag is present.
func DebugCheckPow2[T Number](value T, name string) {
	err := CheckPow2[T](value, name)
	if err != nil {
		panic(err)
	}
}
