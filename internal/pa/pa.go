// Package pa builds the "generate by PA" hand-off: a QR code pointing a
// physician assistant at an external form for a fresh prescription id. It
// never goes through a session and never validates anything.
package pa

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// IDPrefix starts every generated prescription id.
const IDPrefix = "prescription-"

// Request is one PA hand-off.
type Request struct {
	PrescriptionID string
	URL            string
}

// NewRequest returns a hand-off for formURL with a new prescription id.
func NewRequest(formURL string) (Request, error) {
	u, err := url.Parse(formURL)
	if err != nil {
		return Request{}, fmt.Errorf("parsing form url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Request{}, fmt.Errorf("form url %q is not absolute", formURL)
	}

	id := IDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	q := u.Query()
	q.Set("prescriptionId", id)
	u.RawQuery = q.Encode()

	return Request{PrescriptionID: id, URL: u.String()}, nil
}

// Terminal renders the QR code with half-block characters.
func (r Request) Terminal() (string, error) {
	q, err := qrcode.New(r.URL, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("encoding qr code: %w", err)
	}
	return q.ToSmallString(false), nil
}

// PNG renders the QR code as a size x size square with the prescription id
// printed underneath.
func (r Request) PNG(size int) ([]byte, error) {
	q, err := qrcode.New(r.URL, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encoding qr code: %w", err)
	}
	code := q.Image(size)

	caption := captionImage(r.PrescriptionID, size)
	img := image.NewRGBA(image.Rect(0, 0, size, size+caption.Bounds().Dy()))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, size, size), code, code.Bounds().Min, draw.Src)
	draw.Draw(img, caption.Bounds().Add(image.Pt(0, size)), caption, image.Point{}, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// captionImage renders text in black on white, scaled to fit width.
func captionImage(text string, width int) *image.RGBA {
	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, text).Ceil()
	textHeight := 13

	small := image.NewRGBA(image.Rect(0, 0, textWidth, textHeight))
	d := &font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.Point26_6{Y: fixed.I(11)},
	}
	d.DrawString(text)

	// Leave a margin of 10% on each side, never shrink below the base size
	scale := float64(width) * 0.8 / float64(textWidth)
	if scale < 1 {
		scale = 1
	}
	w := min(width, int(float64(textWidth)*scale))
	h := int(float64(textHeight) * scale)

	out := image.NewRGBA(image.Rect(0, 0, width, h+textHeight))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	x := (width - w) / 2
	draw.NearestNeighbor.Scale(out, image.Rect(x, 0, x+w, h), small, small.Bounds(), draw.Over, nil)
	return out
}

// WritePNG writes the QR code PNG to path.
func (r Request) WritePNG(path string, size int) error {
	png, err := r.PNG(size)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("writing qr code: %w", err)
	}
	return nil
}
