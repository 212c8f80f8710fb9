package utils

import (
	"errors"
	"log"
	"time"

	"github.com/IndSumit07/SPass/src/config"
	"github.com/IndSumit07/SPass/src/db"
	"github.com/IndSumit07/SPass/src/lib"
	"github.com/IndSumit07/SPass/src/models"
	"github.com/IndSumit07/SPass/src/types"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// CreateNewEvent persists a new event from validated request params.
// Events start as drafts unless the request asks to publish immediately.
// A completion job is scheduled only when the event declares an end date;
// an event with just a start date has no known end and stays open until
// the organizer closes it.
func CreateNewEvent(params *types.CreateEventRequestBody, creatorId uint) (*models.Event, error) {
	startDate, err := time.Parse(config.TIME_PARSE_FORMAT, params.StartDate)
	if err != nil {
		return nil, err
	}
	var endDate *time.Time
	if params.EndDate != nil {
		parsed, err := time.Parse(config.TIME_PARSE_FORMAT, *params.EndDate)
		if err != nil {
			return nil, err
		}
		endDate = &parsed
	}
	var deadline *time.Time
	if params.Deadline != nil {
		parsed, err := time.Parse(config.TIME_PARSE_FORMAT, *params.Deadline)
		if err != nil {
			return nil, err
		}
		deadline = &parsed
	}

	var about *string
	if params.Description != "" {
		about = &params.Description
	}
	event := models.Event{
		Name:             params.Name,
		Slug:             slug.Make(params.Name),
		About:            about,
		OrganisationName: params.OrganisationName,
		Venue:            params.Venue,
		Location:         params.Location,
		StartDate:        startDate,
		EndDate:          endDate,
		Deadline:         deadline,
		Capacity:         params.Capacity,
		TicketType:       params.TicketType,
		TicketPrice:      params.TicketPrice,
		Status:           types.EVENT_DRAFT,
		CoverImage:       params.CoverImage,
		Logo:             params.Logo,
		PassTemplate:     params.PassTemplate,
		CreatedBy:        creatorId,
	}
	d := db.GetDb()
	if err := d.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&event).Error
	}); err != nil {
		return nil, err
	}

	if endDate != nil {
		go func(id uint, at time.Time) {
			if _, err := lib.CreateOneTimeJob(at, CompleteEvent, id); err != nil {
				log.Printf("Error scheduling completion for event %d: %s\n", id, err.Error())
			}
		}(event.ID, *endDate)
	}

	if params.Publish {
		if err := PublishEvent(event.ID); err != nil {
			return nil, err
		}
		event.Status = types.EVENT_PUBLISHED
		event.RegistrationOpen = true
	}
	return &event, nil
}

// PublishEvent transitions draft -> published and opens registration. The
// transition is conditional on the draft status, so republishing is a no-op
// error.
func PublishEvent(id uint) error {
	d := db.GetDb()
	res := d.
		Model(&models.Event{}).
		Where("id = ? AND status = ?", id, types.EVENT_DRAFT).
		Updates(map[string]any{"status": types.EVENT_PUBLISHED, "registration_open": true})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

func GetEvent(id uint) (*models.Event, error) {
	var event models.Event
	d := db.GetDb()
	if err := d.Where(&models.Event{ID: id}).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

// CompleteEvent marks an event completed and expires its unredeemed
// passes. Invoked by the scheduler at the event's end time.
func CompleteEvent(id uint) {
	d := db.GetDb()
	if err := d.
		Model(&models.Event{}).
		Where("id = ? AND status IN ?", id, []types.EventStatus{types.EVENT_PUBLISHED, types.EVENT_ONGOING}).
		Updates(map[string]any{"status": types.EVENT_COMPLETED, "registration_open": false}).
		Error; err != nil {
		log.Printf("Error completing event %d: %s\n", id, err.Error())
		return
	}
	if err := d.
		Model(&models.Pass{}).
		Where("event_id = ? AND status = ?", id, types.PASS_ISSUED).
		Update("status", types.PASS_EXPIRED).
		Error; err != nil {
		log.Printf("Error expiring passes for event %d: %s\n", id, err.Error())
	}
}
