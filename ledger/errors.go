package ledger

import "errors"

var (
	// ErrInsufficientBalance is a business-rule rejection: the hold would
	// overdraw the account's available balance.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrHoldExhausted means a consume exceeded the hold's remaining
	// amount. This is an orchestration bug, never a user-input failure.
	ErrHoldExhausted = errors.New("ledger: hold exhausted")

	ErrHoldNotActive = errors.New("ledger: hold not active")

	// ErrUnbalancedLines means a journal entry's lines do not sum to zero
	// for some currency. Always a programming error; the entry is never
	// partially applied.
	ErrUnbalancedLines = errors.New("ledger: journal lines unbalanced")
)
