package fixedpoint

// IsMultipleOf reports whether value is an exact integer multiple of step,
// computed entirely in the scaled-integer domain. Markets use it to check
// order prices against the tick size and quantities against the lot size
// before any funds are reserved.
func IsMultipleOf(value, step Amount) bool {
	if !step.IsPositive() {
		return false
	}

	return value.d.Mod(step.d).IsZero()
}
