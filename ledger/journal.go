package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/zentex/zentex/pkg/fixedpoint"
)

// JournalEntry is one business event: a trade execution, a fee charge, a
// transfer, a deposit. It owns one or more journal lines.
type JournalEntry struct {
	ID        uint64    `json:"id" gorm:"primaryKey"`
	UUID      uuid.UUID `json:"uuid"`
	EntryType string    `json:"entry_type"`
	Reference string    `json:"reference" gorm:"index"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`

	Lines []JournalLine `json:"lines" gorm:"foreignKey:EntryID"`
}

// JournalLine posts a single signed amount to one account for one
// currency. The ledger is append-only: lines are never updated or
// deleted, and an account's posted balance is the sum of its lines.
type JournalLine struct {
	ID        uint64            `json:"id" gorm:"primaryKey"`
	EntryID   uint64            `json:"entry_id" gorm:"index"`
	AccountID uint64            `json:"account_id" gorm:"index:idx_journal_lines_account_currency"`
	Currency  string            `json:"currency" gorm:"index:idx_journal_lines_account_currency"`
	Amount    fixedpoint.Amount `json:"amount" gorm:"type:numeric(38,18)"`
	CreatedAt time.Time         `json:"created_at"`
}

// LineInput describes one line of an entry to be posted. Amount is
// signed: credits positive, debits negative.
type LineInput struct {
	AccountID uint64
	Currency  string
	Amount    fixedpoint.Amount
}
