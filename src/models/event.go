package models

import (
	"time"

	"github.com/IndSumit07/SPass/src/types"
)

// Event is the aggregate root for passes. AttendeeCount is claimed with a
// conditional update so it can never exceed Capacity when Capacity > 0.
type Event struct {
	ID               uint                `gorm:"primarykey" json:"id"`
	Name             string              `json:"eventName"`
	Slug             string              `json:"slug,omitempty"`
	About            *string             `json:"description,omitempty"`
	OrganisationName string              `json:"organisationName"`
	Venue            string              `json:"venue,omitempty"`
	Location         string              `json:"location,omitempty"`
	StartDate        time.Time           `json:"startDate"`
	EndDate          *time.Time          `json:"endDate,omitempty"`
	Deadline         *time.Time          `json:"registrationDeadline,omitempty"`
	Capacity         uint                `json:"capacity"`
	AttendeeCount    uint                `json:"attendeeCount"`
	TicketType       string              `gorm:"default:'Free'" json:"ticketType,omitempty"`
	TicketPrice      float32             `json:"ticketPrice,omitempty"`
	RegistrationOpen bool                `json:"isRegistrationOpen"`
	Status           types.EventStatus   `gorm:"default:'draft'" json:"status,omitempty"`
	CoverImage       string              `json:"coverImage,omitempty"`
	Logo             string              `json:"logo,omitempty"`
	PassTemplate     *types.PassTemplate `gorm:"type:jsonb" json:"passTemplate,omitempty"`
	CreatedBy        uint                `json:"createdBy,omitempty"`

	Creator User   `gorm:"foreignKey:created_by" json:"-"`
	Passes  []Pass `gorm:"foreignKey:event_id" json:"passes,omitempty"`

	types.Timestamps
}
