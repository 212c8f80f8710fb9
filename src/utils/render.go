package utils

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"net/http"
	"strings"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/IndSumit07/SPass/src/models"
	"github.com/IndSumit07/SPass/src/types"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	passWidth  = 400
	passHeight = 600
)

var (
	titleFace font.Face
	bodyFace  font.Face
	smallFace font.Face
)

func init() {
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		panic(err)
	}
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
	titleFace = truetype.NewFace(bold, &truetype.Options{Size: 20})
	bodyFace = truetype.NewFace(regular, &truetype.Options{Size: 16})
	smallFace = truetype.NewFace(regular, &truetype.Options{Size: 14})
}

// hexColor parses #RGB and #RRGGBB strings. Malformed input falls back to
// the default template violet so a bad template never fails a render.
func hexColor(s string, fallback color.RGBA) color.RGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	var r, g, b uint8
	switch len(s) {
	case 3:
		if _, err := fmt.Sscanf(s, "%1x%1x%1x", &r, &g, &b); err != nil {
			return fallback
		}
		return color.RGBA{R: r * 17, G: g * 17, B: b * 17, A: 255}
	case 6:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
			return fallback
		}
		return color.RGBA{R: r, G: g, B: b, A: 255}
	default:
		return fallback
	}
}

func decodeDataURI(uri string) (image.Image, error) {
	_, raw, found := strings.Cut(uri, ",")
	if !found {
		return nil, errors.New("malformed data uri")
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// loadImageSource resolves a template image reference, either an inline
// data URI or a fetchable URL.
func loadImageSource(src string) (image.Image, error) {
	if strings.HasPrefix(src, "data:") {
		return decodeDataURI(src)
	}
	client := http.Client{Timeout: 10 * time.Second}
	res, err := client.Get(src)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching image: unexpected status %d", res.StatusCode)
	}
	img, _, err := image.Decode(res.Body)
	return img, err
}

func scaleImage(img image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// CreatePassImage renders the 400x600 pass artifact and returns it as a
// PNG data URI. Decorative failures (unfetchable cover image, undecodable
// QR raster) degrade to a pass without that element; a pass missing its
// event or holder name is an error.
func CreatePassImage(event *models.Event, user *models.User, pass *models.Pass) (string, error) {
	if event.Name == "" {
		return "", errors.New("cannot render pass: event name is empty")
	}
	if user.Name == "" {
		return "", errors.New("cannot render pass: user name is empty")
	}

	tpl := event.PassTemplate
	if tpl == nil {
		tpl = &types.PassTemplate{}
	}
	primary := hexColor(tpl.PrimaryColor, color.RGBA{R: 0x8B, G: 0x5C, B: 0xF6, A: 255})
	secondary := hexColor(tpl.SecondaryColor, color.RGBA{R: 0xEC, G: 0x48, B: 0x99, A: 255})

	dc := gg.NewContext(passWidth, passHeight)
	dc.SetHexColor("#0e0e0e")
	dc.Clear()

	bannerSrc := event.CoverImage
	if bannerSrc == "" {
		bannerSrc = tpl.BackgroundImage
	}
	if bannerSrc != "" {
		if banner, err := loadImageSource(bannerSrc); err != nil {
			log.Printf("Error loading pass banner: %s\n", err.Error())
		} else {
			dc.DrawImage(scaleImage(banner, passWidth, 150), 0, 0)
		}
	}

	grad := gg.NewLinearGradient(0, 150, 400, 230)
	grad.AddColorStop(0, primary)
	grad.AddColorStop(1, secondary)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 150, 400, 80)
	dc.Fill()

	dc.SetFontFace(titleFace)
	dc.SetHexColor("#ffffff")
	dc.DrawStringAnchored(event.Name, 200, 180, 0.5, 0.5)
	dc.SetFontFace(smallFace)
	dc.DrawStringAnchored(event.OrganisationName, 200, 200, 0.5, 0.5)

	dc.SetHexColor("#1a1a1a")
	dc.DrawRectangle(20, 250, 360, 200)
	dc.Fill()

	dc.SetHexColor("#ffffff")
	dc.SetFontFace(bodyFace)
	dc.DrawString(fmt.Sprintf("Attendee: %s", user.Name), 40, 280)
	dc.DrawString(fmt.Sprintf("Email: %s", user.Email), 40, 305)
	dc.DrawString(fmt.Sprintf("Pass ID: %s", pass.PassID), 40, 330)
	dc.DrawString(fmt.Sprintf("Date: %s", event.StartDate.Format("1/2/2006")), 40, 365)
	if event.Venue != "" {
		dc.DrawString(fmt.Sprintf("Venue: %s", event.Venue), 40, 390)
	}
	if pass.SeatNumber != nil {
		dc.DrawString(fmt.Sprintf("Seat: %s", *pass.SeatNumber), 40, 415)
	}

	if tpl.ShowQRCode == nil || *tpl.ShowQRCode {
		if qr, err := decodeDataURI(pass.QRCodeData); err != nil {
			log.Printf("Error decoding pass QR raster: %s\n", err.Error())
		} else {
			dc.DrawImage(scaleImage(qr, 120, 120), 140, 450)
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
