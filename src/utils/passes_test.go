package utils

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"log"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	_ "image/jpeg"

	"github.com/IndSumit07/SPass/src/db"
	"github.com/IndSumit07/SPass/src/models"
	"github.com/IndSumit07/SPass/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var setupOnce sync.Once

func setupTestDB(t *testing.T) *gorm.DB {
	setupOnce.Do(func() {
		d, err := gorm.Open(sqlite.Open("file:utilstest?mode=memory&cache=shared"), &gorm.Config{})
		if err != nil {
			log.Fatalf("An error '%s' was not expected when opening test database", err)
		}
		if err := d.AutoMigrate(&models.User{}, &models.Event{}, &models.Pass{}); err != nil {
			log.Fatalf("error migration: %s", err.Error())
		}
		if err := d.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uq_passes_active ON passes (event_id, user_id) WHERE status IN ('issued','checked-in')`).Error; err != nil {
			log.Fatalf("error creating index: %s", err.Error())
		}
		db.NewDB(d)
	})
	return db.GetDb()
}

func createTestUser(t *testing.T, d *gorm.DB, name string) *models.User {
	user := models.User{Name: name, Email: fmt.Sprintf("%s-%d@example.com", strings.ToLower(strings.ReplaceAll(name, " ", ".")), time.Now().UnixNano())}
	require.NoError(t, d.Create(&user).Error)
	return &user
}

func createTestEvent(t *testing.T, d *gorm.DB, name string, capacity uint) *models.Event {
	event := models.Event{
		Name:             name,
		OrganisationName: "Acme Events",
		Venue:            "Main Hall",
		StartDate:        time.Now().Add(48 * time.Hour),
		Capacity:         capacity,
		Status:           types.EVENT_PUBLISHED,
		RegistrationOpen: true,
	}
	require.NoError(t, d.Create(&event).Error)
	return &event
}

func TestGeneratePassID(t *testing.T) {
	id := GeneratePassID("12345", "678")
	format := regexp.MustCompile(`^PASS_[0-9A-Z]{1,4}_[0-9A-Z]{1,4}_[0-9A-Z]+_[0-9A-Z]{6}$`)
	assert.Regexp(t, format, id)
	assert.True(t, strings.HasPrefix(id, "PASS_2345_678_"))

	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := GeneratePassID("1", "2")
		assert.False(t, seen[id], "duplicate pass id %s", id)
		seen[id] = true
	}
}

func TestBuildQRPayload(t *testing.T) {
	raw, err := BuildQRPayload("PASS_ABC", 42, 7)
	require.NoError(t, err)

	var payload types.QRPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	assert.Equal(t, "PASS_ABC", payload.PassID)
	assert.Equal(t, uint(42), payload.EventID)
	assert.Equal(t, uint(7), payload.UserID)
	assert.InDelta(t, time.Now().UnixMilli(), payload.Timestamp, 5000)
}

func TestGenerateQRCodeData(t *testing.T) {
	data, err := GenerateQRCodeData("PASS_ABC", 42, 7)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(data, "data:image/jpeg;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(data, "data:image/jpeg;base64,"))
	require.NoError(t, err)
	img, format, err := image.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Greater(t, img.Bounds().Dx(), 0)
}

func TestIssuePass(t *testing.T) {
	d := setupTestDB(t)
	event := createTestEvent(t, d, "Issue Night", 1)
	alice := createTestUser(t, d, "Alice A")
	bob := createTestUser(t, d, "Bob B")

	pass, already, err := IssuePass(event.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, types.PASS_ISSUED, pass.Status)
	require.NotNil(t, pass.SeatNumber)
	assert.Equal(t, "SEAT_001", *pass.SeatNumber)
	assert.True(t, strings.HasPrefix(pass.QRCodeData, "data:image/jpeg;base64,"))
	assert.True(t, strings.HasPrefix(pass.PassImage, "data:image/png;base64,"))

	var updated models.Event
	require.NoError(t, d.First(&updated, event.ID).Error)
	assert.Equal(t, uint(1), updated.AttendeeCount)

	dup, already, err := IssuePass(event.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, already)
	assert.Equal(t, pass.PassID, dup.PassID)

	require.NoError(t, d.First(&updated, event.ID).Error)
	assert.Equal(t, uint(1), updated.AttendeeCount)

	_, _, err = IssuePass(event.ID, bob.ID)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	_, _, err = IssuePass(99999, alice.ID)
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, _, err = IssuePass(event.ID, 99999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestIssuePassUnlimitedCapacity(t *testing.T) {
	d := setupTestDB(t)
	event := createTestEvent(t, d, "Open Night", 0)

	for i := 0; i < 5; i++ {
		user := createTestUser(t, d, fmt.Sprintf("Guest %d", i))
		pass, already, err := IssuePass(event.ID, user.ID)
		require.NoError(t, err)
		assert.False(t, already)
		assert.Equal(t, fmt.Sprintf("SEAT_%03d", i+1), *pass.SeatNumber)
	}
}

func TestScanPass(t *testing.T) {
	d := setupTestDB(t)
	event := createTestEvent(t, d, "Scan Night", 10)
	other := createTestEvent(t, d, "Other Night", 10)
	alice := createTestUser(t, d, "Alice Scan")

	pass, _, err := IssuePass(event.ID, alice.ID)
	require.NoError(t, err)

	scanned, err := ScanPass(pass.PassID, event.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PASS_CHECKED_IN, scanned.Status)
	require.NotNil(t, scanned.CheckedInAt)

	rescanned, err := ScanPass(pass.PassID, event.ID)
	assert.ErrorIs(t, err, ErrPassAlreadyUsed)
	require.NotNil(t, rescanned)
	assert.Equal(t, types.PASS_CHECKED_IN, rescanned.Status)

	_, err = ScanPass(pass.PassID, other.ID)
	assert.ErrorIs(t, err, ErrInvalidPass)

	_, err = ScanPass("PASS_NOPE", event.ID)
	assert.ErrorIs(t, err, ErrInvalidPass)

	_, err = ScanPass(pass.PassID, 99999)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestScanPassConcurrentCheckIn(t *testing.T) {
	d := setupTestDB(t)
	event := createTestEvent(t, d, "Crowded Night", 10)
	alice := createTestUser(t, d, "Alice Crowd")

	pass, _, err := IssuePass(event.ID, alice.ID)
	require.NoError(t, err)

	// A rival scan checks the pass in between this scan's status read and
	// its conditional update, the interleaving the status guard exists
	// for. The callback runs inside the scan's own transaction right
	// before the update statement.
	rivalWon := time.Now()
	flipped := false
	require.NoError(t, d.Callback().Update().Before("gorm:update").Register("rival_checkin", func(tx *gorm.DB) {
		if flipped || tx.Statement.Table != "passes" {
			return
		}
		flipped = true
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE passes SET status = ?, checked_in_at = ? WHERE pass_id = ?",
				types.PASS_CHECKED_IN, rivalWon, pass.PassID)
	}))
	defer d.Callback().Update().Remove("rival_checkin")

	scanned, err := ScanPass(pass.PassID, event.ID)
	assert.ErrorIs(t, err, ErrPassAlreadyUsed)
	require.NotNil(t, scanned)
	assert.Equal(t, types.PASS_CHECKED_IN, scanned.Status)

	// The rival's check-in stamp survives; the losing scan wrote nothing.
	var current models.Pass
	require.NoError(t, d.Where(&models.Pass{PassID: pass.PassID}).First(&current).Error)
	require.NotNil(t, current.CheckedInAt)
	assert.WithinDuration(t, rivalWon, *current.CheckedInAt, time.Second)
}

func TestCancelPass(t *testing.T) {
	d := setupTestDB(t)
	event := createTestEvent(t, d, "Cancel Night", 10)
	alice := createTestUser(t, d, "Alice Cancel")
	bob := createTestUser(t, d, "Bob Cancel")

	pass, _, err := IssuePass(event.ID, alice.ID)
	require.NoError(t, err)

	cancelled, err := CancelPass(pass.PassID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PASS_CANCELLED, cancelled.Status)

	_, err = CancelPass(pass.PassID, alice.ID)
	assert.ErrorIs(t, err, ErrPassCancelled)

	_, err = ScanPass(pass.PassID, event.ID)
	assert.ErrorIs(t, err, ErrPassCancelled)

	// Cancelling frees the duplicate guard, a new pass can be issued.
	fresh, already, err := IssuePass(event.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, already)
	assert.NotEqual(t, pass.PassID, fresh.PassID)

	checked, _, err := IssuePass(event.ID, bob.ID)
	require.NoError(t, err)
	_, err = ScanPass(checked.PassID, event.ID)
	require.NoError(t, err)
	_, err = CancelPass(checked.PassID, bob.ID)
	assert.ErrorIs(t, err, ErrPassAlreadyUsed)

	_, err = CancelPass(fresh.PassID, bob.ID)
	assert.ErrorIs(t, err, ErrInvalidPass)
}

func TestGetUserPasses(t *testing.T) {
	d := setupTestDB(t)
	event := createTestEvent(t, d, "List Night", 10)
	alice := createTestUser(t, d, "Alice List")

	pass, _, err := IssuePass(event.ID, alice.ID)
	require.NoError(t, err)

	passes, err := GetUserPasses(alice.ID)
	require.NoError(t, err)
	require.Len(t, passes, 1)
	assert.Equal(t, pass.PassID, passes[0].PassID)
	assert.Equal(t, "List Night", passes[0].EventName)
	assert.Equal(t, "Acme Events", passes[0].OrganisationName)
	assert.Equal(t, "Main Hall", passes[0].Venue)
	require.NotNil(t, passes[0].User)
	assert.Equal(t, "Alice List", passes[0].User.Fullname)
}

func TestExpireEndedEventPasses(t *testing.T) {
	d := setupTestDB(t)
	alice := createTestUser(t, d, "Alice Expire")
	started := time.Now().Add(-48 * time.Hour)
	ended := time.Now().Add(-24 * time.Hour)
	event := models.Event{
		Name:             "Ended Night",
		OrganisationName: "Acme Events",
		StartDate:        started,
		EndDate:          &ended,
		Status:           types.EVENT_PUBLISHED,
	}
	require.NoError(t, d.Create(&event).Error)
	pass, _, err := IssuePass(event.ID, alice.ID)
	require.NoError(t, err)

	ExpireEndedEventPasses()

	var expired models.Pass
	require.NoError(t, d.Where(&models.Pass{PassID: pass.PassID}).First(&expired).Error)
	assert.Equal(t, types.PASS_EXPIRED, expired.Status)

	var completed models.Event
	require.NoError(t, d.First(&completed, event.ID).Error)
	assert.Equal(t, types.EVENT_COMPLETED, completed.Status)

	_, err = ScanPass(pass.PassID, event.ID)
	assert.ErrorIs(t, err, ErrPassExpired)
}

func TestExpireSweepLeavesOngoingEvents(t *testing.T) {
	d := setupTestDB(t)
	alice := createTestUser(t, d, "Alice Doors")
	bob := createTestUser(t, d, "Bob Doors")

	// Doors opened five minutes ago, no declared end.
	openEnded := models.Event{
		Name:             "Open-Ended Night",
		OrganisationName: "Acme Events",
		StartDate:        time.Now().Add(-5 * time.Minute),
		Status:           types.EVENT_PUBLISHED,
	}
	require.NoError(t, d.Create(&openEnded).Error)

	// Started two hours ago, ends in two hours.
	endsLater := time.Now().Add(2 * time.Hour)
	inProgress := models.Event{
		Name:             "In-Progress Night",
		OrganisationName: "Acme Events",
		StartDate:        time.Now().Add(-2 * time.Hour),
		EndDate:          &endsLater,
		Status:           types.EVENT_PUBLISHED,
	}
	require.NoError(t, d.Create(&inProgress).Error)

	passA, _, err := IssuePass(openEnded.ID, alice.ID)
	require.NoError(t, err)
	passB, _, err := IssuePass(inProgress.ID, bob.ID)
	require.NoError(t, err)

	ExpireEndedEventPasses()

	var current models.Pass
	require.NoError(t, d.Where(&models.Pass{PassID: passA.PassID}).First(&current).Error)
	assert.Equal(t, types.PASS_ISSUED, current.Status)
	current = models.Pass{}
	require.NoError(t, d.Where(&models.Pass{PassID: passB.PassID}).First(&current).Error)
	assert.Equal(t, types.PASS_ISSUED, current.Status)

	var reloaded models.Event
	require.NoError(t, d.First(&reloaded, openEnded.ID).Error)
	assert.Equal(t, types.EVENT_PUBLISHED, reloaded.Status)

	// Attendees arriving after doors open still check in.
	scanned, err := ScanPass(passA.PassID, openEnded.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PASS_CHECKED_IN, scanned.Status)
	scanned, err = ScanPass(passB.PassID, inProgress.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PASS_CHECKED_IN, scanned.Status)
}
