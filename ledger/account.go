package ledger

import "time"

// PlatformMemberID owns house accounts such as the fee-collection
// account for each currency.
const PlatformMemberID uint64 = 0

// Account identifies a (member, currency) pair. Accounts are created
// lazily on first use and never deleted; balances are derived from the
// journal, not stored on the row.
type Account struct {
	ID        uint64 `json:"id" gorm:"primaryKey"`
	MemberID  uint64 `json:"member_id" gorm:"uniqueIndex:idx_accounts_member_currency"`
	Currency  string `json:"currency" gorm:"uniqueIndex:idx_accounts_member_currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
