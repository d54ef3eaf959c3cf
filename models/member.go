package models

import (
	"time"
)

const (
	MemberStateActive   = "active"
	MemberStateDisabled = "disabled"
)

// Member is a trading account holder. Group selects the fee schedule
// row; fee rates are captured onto orders at acceptance.
type Member struct {
	ID        uint64    `json:"id" gorm:"primaryKey"`
	UID       string    `json:"uid" gorm:"uniqueIndex"`
	Email     string    `json:"email"`
	Group     string    `json:"group" gorm:"default:any"`
	State     string    `json:"state" gorm:"default:active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *Member) Active() bool {
	return m.State == MemberStateActive
}
