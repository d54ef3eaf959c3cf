package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/zentex/zentex/pkg/fixedpoint"
)

type HoldStatus string

const (
	HoldStatusActive   HoldStatus = "active"
	HoldStatusReleased HoldStatus = "released"
)

// Hold reserves part of an account's posted balance so it cannot be
// double-spent while an order is open or a withdrawal is pending. The
// reservation never moves posted value; it only shrinks the available
// balance while active.
//
// Consumption and release are distinct: consuming records value actually
// transferred at settlement, releasing returns unused reservation to the
// owner. A hold consumed to exactly zero stays active until released.
type Hold struct {
	ID         uint64            `json:"id" gorm:"primaryKey"`
	AccountID  uint64            `json:"account_id" gorm:"index"`
	Currency   string            `json:"currency"`
	Amount     fixedpoint.Amount `json:"amount" gorm:"type:numeric(38,18)"`
	Remaining  fixedpoint.Amount `json:"remaining" gorm:"type:numeric(38,18)"`
	Status     HoldStatus        `json:"status" gorm:"index"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	ReleasedAt sql.NullTime      `json:"released_at"`
}

// CreateHold reserves amount against the account. The available-balance
// check and the insert happen atomically under a row lock on the account,
// closing the check-then-act overdraft race.
func (l *Ledger) CreateHold(accountID uint64, currency string, amount fixedpoint.Amount) (*Hold, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("hold amount %s: %w", amount, fixedpoint.ErrInvalidAmount)
	}

	var hold *Hold

	err := l.db.Transaction(func(tx *gorm.DB) error {
		var account Account
		if err := withRowLock(tx).First(&account, accountID).Error; err != nil {
			return err
		}

		available, err := availableBalance(tx, accountID, currency)
		if err != nil {
			return err
		}

		if available.Cmp(amount) < 0 {
			return fmt.Errorf("account %d has %s %s available, need %s: %w",
				accountID, available, currency, amount, ErrInsufficientBalance)
		}

		hold = &Hold{
			AccountID: accountID,
			Currency:  currency,
			Amount:    amount,
			Remaining: amount,
			Status:    HoldStatusActive,
		}

		return tx.Create(hold).Error
	})
	if err != nil {
		return nil, err
	}

	return hold, nil
}

// ConsumeHold decreases the hold's remaining amount by amount, recording
// value transferred at settlement. Consuming to exactly zero does not
// release the hold.
func (l *Ledger) ConsumeHold(holdID uint64, amount fixedpoint.Amount) error {
	if amount.IsNegative() {
		return fmt.Errorf("consume amount %s: %w", amount, fixedpoint.ErrInvalidAmount)
	}
	if amount.IsZero() {
		return nil
	}

	return l.db.Transaction(func(tx *gorm.DB) error {
		var hold Hold
		if err := withRowLock(tx).First(&hold, holdID).Error; err != nil {
			return err
		}

		if hold.Status != HoldStatusActive {
			return fmt.Errorf("hold %d: %w", holdID, ErrHoldNotActive)
		}

		remaining, err := hold.Remaining.Sub(amount)
		if err != nil {
			return fmt.Errorf("hold %d has %s remaining, consume %s: %w",
				holdID, hold.Remaining, amount, ErrHoldExhausted)
		}

		hold.Remaining = remaining

		return tx.Save(&hold).Error
	})
}

// ReleaseHold marks the hold released; any unconsumed remainder becomes
// available again immediately. Releasing an already-released hold is a
// no-op so retries are safe.
func (l *Ledger) ReleaseHold(holdID uint64) (*Hold, error) {
	var hold Hold

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := withRowLock(tx).First(&hold, holdID).Error; err != nil {
			return err
		}

		if hold.Status == HoldStatusReleased {
			return nil
		}

		hold.Status = HoldStatusReleased
		hold.ReleasedAt = sql.NullTime{Time: time.Now(), Valid: true}

		return tx.Save(&hold).Error
	})
	if err != nil {
		return nil, err
	}

	return &hold, nil
}
