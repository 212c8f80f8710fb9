package models

import (
	"time"

	"github.com/IndSumit07/SPass/src/types"
)

// Pass is one attendee's right of entry to an event. Passes are never
// deleted; cancellation and expiry are status transitions. Besides the
// unique index on PassID, boot creates a partial unique index on
// (event_id, user_id) for the issued/checked-in statuses so at most one
// active pass exists per attendee per event.
type Pass struct {
	ID          uint             `gorm:"primarykey" json:"id"`
	PassID      string           `gorm:"uniqueIndex" json:"passId"`
	EventID     uint             `gorm:"index" json:"eventId"`
	UserID      uint             `gorm:"index" json:"userId"`
	QRCodeData  string           `json:"qrCodeData,omitempty"`
	PassImage   string           `json:"passImage,omitempty"`
	Status      types.PassStatus `gorm:"default:'issued'" json:"status"`
	IssuedAt    time.Time        `json:"issuedAt"`
	CheckedInAt *time.Time       `json:"checkedInAt,omitempty"`
	SeatNumber  *string          `json:"seatNumber,omitempty"`

	Event Event `json:"-"`
	User  User  `json:"-"`

	types.Timestamps
}

type PassUser struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

type PassEvent struct {
	ID               uint      `json:"id"`
	EventName        string    `json:"eventName"`
	StartDate        time.Time `json:"startDate"`
	Venue            string    `json:"venue"`
	OrganisationName string    `json:"organisationName"`
}

// EnrichedPass is the response shape for pass endpoints: the stored pass
// plus denormalized display fields. Not persisted.
type EnrichedPass struct {
	Pass
	EventName        string     `json:"eventName,omitempty"`
	OrganisationName string     `json:"organisationName,omitempty"`
	StartDate        *time.Time `json:"startDate,omitempty"`
	Venue            string     `json:"venue,omitempty"`
	User             *PassUser  `json:"user,omitempty"`
	Event            *PassEvent `json:"event,omitempty"`
}
