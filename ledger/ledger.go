// Package ledger implements double-entry bookkeeping over a relational
// store: accounts, balanced journal entries and funds reservations
// (holds). Posted balance is derived from journal lines; available
// balance subtracts the remaining amounts of active holds.
package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zentex/zentex/pkg/fixedpoint"
)

type Ledger struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// WithTx returns a Ledger bound to an outer transaction so callers can
// compose ledger writes with their own row locks and commit atomically.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx}
}

func (l *Ledger) Migrate() error {
	return l.db.AutoMigrate(&Account{}, &JournalEntry{}, &JournalLine{}, &Hold{})
}

// withRowLock adds SELECT ... FOR UPDATE on dialects that support it.
// sqlite has no row locks; its single-writer lock serializes instead.
func withRowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}

	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// EnsureAccount upserts the (member, currency) account. Idempotent and
// safe to call concurrently: a create that loses the unique-index race
// falls back to reading the winner's row. The conditions are written as
// SQL so a zero member id (the platform's house accounts) is matched
// literally instead of being dropped from the query.
func (l *Ledger) EnsureAccount(memberID uint64, currency string) (*Account, error) {
	account := &Account{MemberID: memberID, Currency: currency}

	err := l.db.Where("member_id = ? AND currency = ?", memberID, currency).FirstOrCreate(account).Error
	if err != nil {
		account = &Account{}
		if lookupErr := l.db.Where("member_id = ? AND currency = ?", memberID, currency).First(account).Error; lookupErr == nil {
			return account, nil
		}
		return nil, fmt.Errorf("ensure account %d/%s: %w", memberID, currency, err)
	}

	return account, nil
}

// PostEntry records one business event as a set of journal lines. For
// every currency touched, the signed line amounts must sum to exactly
// zero; the write is atomic, all lines commit or none do.
func (l *Ledger) PostEntry(entryType, reference string, lines []LineInput) (*JournalEntry, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("entry %q has no lines: %w", entryType, ErrUnbalancedLines)
	}

	sums := map[string]fixedpoint.Amount{}
	for _, line := range lines {
		sums[line.Currency] = sums[line.Currency].Add(line.Amount)
	}
	for currency, sum := range sums {
		if !sum.IsZero() {
			return nil, fmt.Errorf("entry %q nets %s %s: %w", entryType, sum, currency, ErrUnbalancedLines)
		}
	}

	entry := &JournalEntry{
		UUID:      uuid.New(),
		EntryType: entryType,
		Reference: reference,
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		for _, line := range lines {
			journalLine := JournalLine{
				EntryID:   entry.ID,
				AccountID: line.AccountID,
				Currency:  line.Currency,
				Amount:    line.Amount,
			}
			if err := tx.Create(&journalLine).Error; err != nil {
				return err
			}
			entry.Lines = append(entry.Lines, journalLine)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// PostedBalance is the sum of every journal line ever posted to the
// account for the currency.
func (l *Ledger) PostedBalance(accountID uint64, currency string) (fixedpoint.Amount, error) {
	return postedBalance(l.db, accountID, currency)
}

func postedBalance(tx *gorm.DB, accountID uint64, currency string) (fixedpoint.Amount, error) {
	var lines []JournalLine
	if err := tx.Where("account_id = ? AND currency = ?", accountID, currency).Find(&lines).Error; err != nil {
		return fixedpoint.Zero, err
	}

	// Summed in Go so the arithmetic stays exact on every dialect.
	balance := fixedpoint.Zero
	for _, line := range lines {
		balance = balance.Add(line.Amount)
	}

	return balance, nil
}

func activeHoldsRemaining(tx *gorm.DB, accountID uint64, currency string) (fixedpoint.Amount, error) {
	var holds []Hold
	if err := tx.Where("account_id = ? AND currency = ? AND status = ?", accountID, currency, HoldStatusActive).Find(&holds).Error; err != nil {
		return fixedpoint.Zero, err
	}

	reserved := fixedpoint.Zero
	for _, hold := range holds {
		reserved = reserved.Add(hold.Remaining)
	}

	return reserved, nil
}

// AvailableBalance is posted balance minus the remaining amounts of all
// active holds, computed inside one transaction so it is consistent with
// concurrent hold creation and consumption.
func (l *Ledger) AvailableBalance(accountID uint64, currency string) (fixedpoint.Amount, error) {
	var available fixedpoint.Amount

	err := l.db.Transaction(func(tx *gorm.DB) error {
		a, err := availableBalance(tx, accountID, currency)
		if err != nil {
			return err
		}

		available = a
		return nil
	})
	if err != nil {
		return fixedpoint.Zero, err
	}

	return available, nil
}

func availableBalance(tx *gorm.DB, accountID uint64, currency string) (fixedpoint.Amount, error) {
	posted, err := postedBalance(tx, accountID, currency)
	if err != nil {
		return fixedpoint.Zero, err
	}

	reserved, err := activeHoldsRemaining(tx, accountID, currency)
	if err != nil {
		return fixedpoint.Zero, err
	}

	return posted.Sub(reserved)
}
