package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"createdAt,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updatedAt,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

// PassTemplate holds the per-event visual theme applied when rendering
// pass artifacts. Stored as a jsonb column on events.
type PassTemplate struct {
	PrimaryColor    string `json:"primaryColor,omitempty"`
	SecondaryColor  string `json:"secondaryColor,omitempty"`
	Layout          string `json:"layout,omitempty"`
	BackgroundImage string `json:"backgroundImage,omitempty"`
	ShowQRCode      *bool  `json:"showQRCode,omitempty"`
	ShowPhoto       bool   `json:"showPhoto,omitempty"`
}

func (t PassTemplate) Value() (driver.Value, error) {
	valueString, err := json.Marshal(t)
	return string(valueString), err
}
func (t *PassTemplate) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("type assertion to []byte failed")
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, t)
}

type EventStatus string

const (
	EVENT_DRAFT     EventStatus = "draft"
	EVENT_PUBLISHED EventStatus = "published"
	EVENT_ONGOING   EventStatus = "ongoing"
	EVENT_COMPLETED EventStatus = "completed"
)

type PassStatus string

const (
	PASS_ISSUED     PassStatus = "issued"
	PASS_CHECKED_IN PassStatus = "checked-in"
	PASS_CANCELLED  PassStatus = "cancelled"
	PASS_EXPIRED    PassStatus = "expired"
)

const (
	TICKET_TYPE_FREE = "Free"
	TICKET_TYPE_PAID = "Paid"
)

// QRPayload is the document embedded in every pass QR code. A scanning
// client decodes it offline to recover passId and eventId before calling
// the scan endpoint.
type QRPayload struct {
	PassID    string `json:"passId"`
	EventID   uint   `json:"eventId"`
	UserID    uint   `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

type CreateEventRequestBody struct {
	Name             string        `json:"eventName" binding:"required"`
	Description      string        `json:"description,omitempty"`
	OrganisationName string        `json:"organisationName" binding:"required"`
	Venue            string        `json:"venue,omitempty"`
	Location         string        `json:"location,omitempty"`
	StartDate        string        `json:"startDate" binding:"required,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	EndDate          *string       `json:"endDate,omitempty" binding:"omitempty,gtdate=StartDate" time_format:"2006-01-02 15:04:05 -07:00"`
	Deadline         *string       `json:"registrationDeadline,omitempty" binding:"omitempty,bookabledate,ltdate=StartDate" time_format:"2006-01-02 15:04:05 -07:00"`
	Capacity         uint          `json:"capacity,omitempty"`
	TicketType       string        `json:"ticketType,omitempty"`
	TicketPrice      float32       `json:"ticketPrice,omitempty"`
	CoverImage       string        `json:"coverImage,omitempty"`
	Logo             string        `json:"logo,omitempty"`
	PassTemplate     *PassTemplate `json:"passTemplate,omitempty"`
	Publish          bool          `json:"publish,omitempty"`
}

type IssuePassRequestBody struct {
	EventID uint `json:"eventId" binding:"required"`
	UserID  uint `json:"userId" binding:"required"`
}

type ScanPassRequestBody struct {
	PassID  string `json:"passId" binding:"required"`
	EventID uint   `json:"eventId" binding:"required"`
}

type RegisterUserRequestBody struct {
	Fullname string `json:"fullname" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
}

type LoginRequestBody struct {
	Email string `json:"email" binding:"required,email"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type PassURIParams struct {
	PassID string `uri:"passId" binding:"required"`
}
