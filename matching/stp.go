package matching

// StpPolicy decides what happens when an incoming order would match one
// of the same member's own resting orders. The matcher itself is not
// identity-aware; the book applies the policy while building the
// candidate maker list. Orchestration selects the policy per market.
type StpPolicy string

const (
	// StpCancelNewest cancels the incoming (newer) order's remainder and
	// leaves the resting order untouched.
	StpCancelNewest StpPolicy = "stp_cancel_newest"

	// StpCancelBoth cancels the resting order and the incoming
	// remainder.
	StpCancelBoth StpPolicy = "stp_cancel_both"

	// StpReject declines the incoming order's remainder. Fills already
	// executed against other makers stand.
	StpReject StpPolicy = "stp_reject"
)

func (p StpPolicy) Valid() bool {
	switch p {
	case StpCancelNewest, StpCancelBoth, StpReject:
		return true
	}

	return false
}
