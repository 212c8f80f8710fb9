package models

import (
	"github.com/IndSumit07/SPass/src/types"
)

type User struct {
	ID            uint   `gorm:"primarykey" json:"id"`
	Name          string `json:"fullname,omitempty"`
	Email         string `gorm:"uniqueIndex" json:"email,omitempty"`
	UID           string `json:"uid,omitempty"`
	Role          string `gorm:"default:'attendee'" json:"role,omitempty"`
	EmailVerified bool   `json:"emailVerified,omitempty"`

	Passes []Pass `gorm:"foreignKey:user_id" json:"passes,omitempty"`

	types.Timestamps
}
