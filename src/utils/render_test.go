package utils

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	_ "image/png"

	"github.com/IndSumit07/SPass/src/models"
	"github.com/IndSumit07/SPass/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fallbackViolet() color.RGBA {
	return color.RGBA{R: 0x8B, G: 0x5C, B: 0xF6, A: 255}
}

func decodePassImage(t *testing.T, dataURI string) image.Image {
	require.True(t, strings.HasPrefix(dataURI, "data:image/png;base64,"))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURI, "data:image/png;base64,"))
	require.NoError(t, err)
	img, format, err := image.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "png", format)
	return img
}

func TestCreatePassImage(t *testing.T) {
	seat := "SEAT_007"
	qrData, err := GenerateQRCodeData("PASS_RENDER", 1, 1)
	require.NoError(t, err)

	event := &models.Event{
		Name:             "Render Night",
		OrganisationName: "Acme Events",
		Venue:            "Main Hall",
		StartDate:        time.Date(2026, 10, 4, 19, 0, 0, 0, time.UTC),
	}
	user := &models.User{Name: "Alice Render", Email: "alice@example.com"}
	pass := &models.Pass{PassID: "PASS_RENDER", QRCodeData: qrData, SeatNumber: &seat}

	out, err := CreatePassImage(event, user, pass)
	require.NoError(t, err)

	img := decodePassImage(t, out)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())
}

func TestCreatePassImageWithoutOptionalElements(t *testing.T) {
	hide := false
	event := &models.Event{
		Name:             "Bare Night",
		OrganisationName: "Acme Events",
		StartDate:        time.Now().Add(24 * time.Hour),
		PassTemplate:     &types.PassTemplate{ShowQRCode: &hide},
	}
	user := &models.User{Name: "Bob Bare", Email: "bob@example.com"}
	pass := &models.Pass{PassID: "PASS_BARE"}

	out, err := CreatePassImage(event, user, pass)
	require.NoError(t, err)

	img := decodePassImage(t, out)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())
}

func TestCreatePassImageWithBadTemplate(t *testing.T) {
	// Malformed theme colors and an unreachable banner degrade, never fail.
	event := &models.Event{
		Name:             "Messy Night",
		OrganisationName: "Acme Events",
		StartDate:        time.Now().Add(24 * time.Hour),
		CoverImage:       "data:image/png;base64,not-base64",
		PassTemplate: &types.PassTemplate{
			PrimaryColor:   "notacolor",
			SecondaryColor: "#zzzzzz",
		},
	}
	user := &models.User{Name: "Cara Messy", Email: "cara@example.com"}
	pass := &models.Pass{PassID: "PASS_MESSY"}

	out, err := CreatePassImage(event, user, pass)
	require.NoError(t, err)
	decodePassImage(t, out)
}

func TestCreatePassImageRequiredFields(t *testing.T) {
	user := &models.User{Name: "Alice", Email: "alice@example.com"}
	pass := &models.Pass{PassID: "PASS_X"}

	_, err := CreatePassImage(&models.Event{StartDate: time.Now()}, user, pass)
	assert.Error(t, err)

	event := &models.Event{Name: "Named Night", OrganisationName: "Acme", StartDate: time.Now()}
	_, err = CreatePassImage(event, &models.User{}, pass)
	assert.Error(t, err)
}

func TestHexColor(t *testing.T) {
	c := hexColor("#8B5CF6", fallbackViolet())
	assert.Equal(t, uint8(0x8b), c.R)
	assert.Equal(t, uint8(0x5c), c.G)
	assert.Equal(t, uint8(0xf6), c.B)

	short := hexColor("#fff", fallbackViolet())
	assert.Equal(t, uint8(255), short.R)

	assert.Equal(t, fallbackViolet(), hexColor("", fallbackViolet()))
	assert.Equal(t, fallbackViolet(), hexColor("#12345", fallbackViolet()))
	assert.Equal(t, fallbackViolet(), hexColor("#gggggg", fallbackViolet()))
}
