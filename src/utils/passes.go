package utils

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/IndSumit07/SPass/src/db"
	"github.com/IndSumit07/SPass/src/models"
	"github.com/IndSumit07/SPass/src/types"
	"github.com/yeqown/go-qrcode"
	"gorm.io/gorm"
)

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrCapacityExceeded = errors.New("event is at full capacity")
	ErrInvalidPass      = errors.New("invalid pass")
	ErrPassAlreadyUsed  = errors.New("pass already used")
	ErrPassCancelled    = errors.New("pass cancelled")
	ErrPassExpired      = errors.New("pass expired")
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func randomBase36(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		log.Printf("Error reading random bytes: %s\n", err.Error())
	}
	for i, b := range buf {
		buf[i] = base36Alphabet[int(b)%len(base36Alphabet)]
	}
	return string(buf)
}

// GeneratePassID builds a pass identifier of the form
// PASS_<last4 eventId>_<last4 userId>_<base36 millis>_<6 random>, uppercased.
// Uniqueness is not checked here; the unique index on passes.pass_id turns
// the (vanishingly unlikely) collision into a create error.
func GeneratePassID(eventId, userId string) string {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 36)
	random := randomBase36(6)
	return strings.ToUpper(fmt.Sprintf("PASS_%s_%s_%s_%s", lastN(eventId, 4), lastN(userId, 4), timestamp, random))
}

func BuildQRPayload(passId string, eventId, userId uint) (string, error) {
	payload := types.QRPayload{
		PassID:    passId,
		EventID:   eventId,
		UserID:    userId,
		Timestamp: time.Now().UnixMilli(),
	}
	raw, err := json.Marshal(&payload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// GenerateQRCodeData renders the verification payload as a QR raster and
// returns it as a data URI, ready to embed in the pass artifact.
func GenerateQRCodeData(passId string, eventId, userId uint) (string, error) {
	payload, err := BuildQRPayload(passId, eventId, userId)
	if err != nil {
		return "", err
	}
	qrc, err := qrcode.New(payload)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := qrc.SaveTo(&buf); err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// IssuePass creates a pass for (eventId, userId). When the user already
// holds an active pass the existing one is returned with already=true and
// nothing is written. The capacity check is a single conditional update on
// events.attendee_count so concurrent issuance cannot overrun capacity.
func IssuePass(eventId, userId uint) (pass *models.Pass, already bool, err error) {
	var out models.Pass
	d := db.GetDb()
	err = d.Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.Where(&models.Event{ID: eventId}).First(&event).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}
		var user models.User
		if err := tx.Where(&models.User{ID: userId}).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		var existing models.Pass
		lookupErr := tx.
			Where(&models.Pass{EventID: eventId, UserID: userId}).
			Where("status IN ?", []types.PassStatus{types.PASS_ISSUED, types.PASS_CHECKED_IN}).
			First(&existing).
			Error
		if lookupErr == nil {
			existing.Event = event
			existing.User = user
			out = existing
			already = true
			return nil
		}
		if !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return lookupErr
		}

		claim := tx.
			Model(&models.Event{}).
			Where("id = ? AND (capacity = 0 OR attendee_count < capacity)", eventId).
			Update("attendee_count", gorm.Expr("attendee_count + 1"))
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return ErrCapacityExceeded
		}

		// Seat labels are issuance-order tokens; cancelled passes keep
		// their slot in the sequence.
		var issued int64
		if err := tx.Model(&models.Pass{}).Where(&models.Pass{EventID: eventId}).Count(&issued).Error; err != nil {
			return err
		}
		seat := fmt.Sprintf("SEAT_%03d", issued+1)

		passId := GeneratePassID(fmt.Sprint(eventId), fmt.Sprint(userId))
		qrData, err := GenerateQRCodeData(passId, eventId, userId)
		if err != nil {
			return err
		}
		newPass := models.Pass{
			PassID:     passId,
			EventID:    eventId,
			UserID:     userId,
			QRCodeData: qrData,
			Status:     types.PASS_ISSUED,
			IssuedAt:   time.Now(),
			SeatNumber: &seat,
		}
		image, err := CreatePassImage(&event, &user, &newPass)
		if err != nil {
			return err
		}
		newPass.PassImage = image
		if err := tx.Create(&newPass).Error; err != nil {
			return err
		}
		newPass.Event = event
		newPass.User = user
		out = newPass
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &out, already, nil
}

// ScanPass validates a pass at the entry point and transitions
// issued -> checked-in. The transition is a conditional update keyed on the
// issued status, so exactly one of any number of concurrent scans wins; the
// rest observe a checked-in pass. Terminal statuses are rejected with the
// pass attached and no write.
func ScanPass(passId string, eventId uint) (*models.Pass, error) {
	var pass models.Pass
	var scanErr error
	d := db.GetDb()
	err := d.Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.Where(&models.Event{ID: eventId}).First(&event).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}
		if err := tx.Where(&models.Pass{PassID: passId, EventID: eventId}).First(&pass).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidPass
			}
			return err
		}
		var user models.User
		if err := tx.Where(&models.User{ID: pass.UserID}).First(&user).Error; err != nil {
			return err
		}
		pass.Event = event
		pass.User = user

		switch pass.Status {
		case types.PASS_CHECKED_IN:
			scanErr = ErrPassAlreadyUsed
			return nil
		case types.PASS_CANCELLED:
			scanErr = ErrPassCancelled
			return nil
		case types.PASS_EXPIRED:
			scanErr = ErrPassExpired
			return nil
		}

		now := time.Now()
		res := tx.
			Model(&models.Pass{}).
			Where("pass_id = ? AND event_id = ? AND status = ?", passId, eventId, types.PASS_ISSUED).
			Updates(map[string]any{"status": types.PASS_CHECKED_IN, "checked_in_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race to a concurrent scan.
			if err := tx.Where(&models.Pass{PassID: passId, EventID: eventId}).First(&pass).Error; err != nil {
				return err
			}
			pass.Event = event
			pass.User = user
			scanErr = ErrPassAlreadyUsed
			return nil
		}
		pass.Status = types.PASS_CHECKED_IN
		pass.CheckedInAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if scanErr != nil {
		return &pass, scanErr
	}
	return &pass, nil
}

// CancelPass transitions issued -> cancelled for a pass owned by userId.
// The seat label and attendee count are untouched; seats are not a pooled
// resource.
func CancelPass(passId string, userId uint) (*models.Pass, error) {
	var pass models.Pass
	d := db.GetDb()
	if err := d.Where(&models.Pass{PassID: passId, UserID: userId}).First(&pass).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidPass
		}
		return nil, err
	}
	res := d.
		Model(&models.Pass{}).
		Where("pass_id = ? AND user_id = ? AND status = ?", passId, userId, types.PASS_ISSUED).
		Update("status", types.PASS_CANCELLED)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		switch pass.Status {
		case types.PASS_CHECKED_IN:
			return &pass, ErrPassAlreadyUsed
		case types.PASS_EXPIRED:
			return &pass, ErrPassExpired
		default:
			return &pass, ErrPassCancelled
		}
	}
	pass.Status = types.PASS_CANCELLED
	return &pass, nil
}

// GetPassForUser loads a pass by its public id, scoped to the owner.
func GetPassForUser(passId string, userId uint) (*models.Pass, error) {
	var pass models.Pass
	d := db.GetDb()
	if err := d.Where(&models.Pass{PassID: passId, UserID: userId}).First(&pass).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidPass
		}
		return nil, err
	}
	return &pass, nil
}

func GetUserPasses(userId uint) ([]models.EnrichedPass, error) {
	var passes []models.Pass
	d := db.GetDb()
	if err := d.
		Where(&models.Pass{UserID: userId}).
		Preload("Event").
		Preload("User").
		Order("issued_at DESC").
		Find(&passes).
		Error; err != nil {
		return nil, err
	}
	enriched := make([]models.EnrichedPass, 0, len(passes))
	for i := range passes {
		enriched = append(enriched, *EnrichPass(&passes[i]))
	}
	return enriched, nil
}

// EnrichPass flattens event and user display fields onto the pass, the
// shape returned from issuance.
func EnrichPass(p *models.Pass) *models.EnrichedPass {
	e := &models.EnrichedPass{Pass: *p}
	if p.Event.ID > 0 {
		startDate := p.Event.StartDate
		e.EventName = p.Event.Name
		e.OrganisationName = p.Event.OrganisationName
		e.StartDate = &startDate
		e.Venue = p.Event.Venue
	}
	if p.User.ID > 0 {
		e.User = &models.PassUser{Fullname: p.User.Name, Email: p.User.Email}
	}
	return e
}

// EnrichScannedPass nests the event display fields instead of flattening
// them, the shape returned from scans and pass listings.
func EnrichScannedPass(p *models.Pass) *models.EnrichedPass {
	e := &models.EnrichedPass{Pass: *p}
	if p.Event.ID > 0 {
		e.Event = &models.PassEvent{
			ID:               p.Event.ID,
			EventName:        p.Event.Name,
			StartDate:        p.Event.StartDate,
			Venue:            p.Event.Venue,
			OrganisationName: p.Event.OrganisationName,
		}
	}
	if p.User.ID > 0 {
		e.User = &models.PassUser{Fullname: p.User.Name, Email: p.User.Email}
	}
	return e
}

// ExpireEndedEventPasses marks issued passes of events past their declared
// end date as expired and completes those events. Run periodically by the
// scheduler. Events without an end date are never swept: a started event is
// an ongoing event, and its passes must stay scannable until someone ends
// it explicitly.
func ExpireEndedEventPasses() {
	d := db.GetDb()
	now := time.Now()
	ended := d.
		Model(&models.Event{}).
		Select("id").
		Where("end_date IS NOT NULL AND end_date < ?", now)
	res := d.
		Model(&models.Pass{}).
		Where("status = ?", types.PASS_ISSUED).
		Where("event_id IN (?)", ended).
		Update("status", types.PASS_EXPIRED)
	if res.Error != nil {
		log.Printf("Error expiring passes: %s\n", res.Error.Error())
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("Expired %d passes\n", res.RowsAffected)
	}
	if err := d.
		Model(&models.Event{}).
		Where("status = ? AND end_date IS NOT NULL AND end_date < ?", types.EVENT_PUBLISHED, now).
		Update("status", types.EVENT_COMPLETED).
		Error; err != nil {
		log.Printf("Error completing ended events: %s\n", err.Error())
	}
}
