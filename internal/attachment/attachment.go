// Package attachment turns a file picked by the user into an encoded document
// for a prescription: images are checked, downscaled and re-encoded, DICOM
// studies are accepted as-is and summarised.
package attachment

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/mrsinham/medbrain/internal/session"
	"github.com/mrsinham/medbrain/internal/util"
)

const (
	// DefaultMaxBytes bounds the encoded attachment.
	DefaultMaxBytes = 5 * 1024 * 1024
	// DefaultMaxDimension bounds the longest side of an image, in pixels.
	DefaultMaxDimension = 1600

	mediaDICOM = "application/dicom"
)

// Options configures Load and Decode.
type Options struct {
	MaxBytes     int64
	MaxDimension int
}

func (o Options) withDefaults() Options {
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	return o
}

// UnsupportedInputError reports a file that cannot be attached.
type UnsupportedInputError struct {
	Name   string
	Reason string
}

func (e *UnsupportedInputError) Error() string {
	return fmt.Sprintf("cannot attach %s: %s", e.Name, e.Reason)
}

// Attachment is an encoded document ready to send.
type Attachment struct {
	Name      string
	MediaType string
	Data      []byte
	Width     int
	Height    int
	// Resized is true when the image was downscaled.
	Resized bool
	// Summary holds the notable tags of a DICOM study.
	Summary []Tag
}

// Size returns the encoded size in bytes.
func (a Attachment) Size() int64 {
	return int64(len(a.Data))
}

// DataURL returns the base64 data URL of the attachment.
func (a Attachment) DataURL() string {
	return "data:" + a.MediaType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// Ref returns the attachment as a session file value.
func (a Attachment) Ref() *session.FileRef {
	return &session.FileRef{
		Name:      a.Name,
		MediaType: a.MediaType,
		Size:      a.Size(),
		DataURL:   a.DataURL(),
	}
}

// Describe returns a one-line description for display.
func (a Attachment) Describe() string {
	if a.MediaType == mediaDICOM {
		return fmt.Sprintf("%s (DICOM, %s)", a.Name, util.FormatSize(a.Size()))
	}
	s := fmt.Sprintf("%s (%s, %dx%d, %s)", a.Name, a.MediaType, a.Width, a.Height, util.FormatSize(a.Size()))
	if a.Resized {
		s += ", resized"
	}
	return s
}

// Load reads and decodes the file at path.
func Load(path string, opts Options) (Attachment, error) {
	opts = opts.withDefaults()
	name := filepath.Base(path)

	info, err := os.Stat(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("reading attachment: %w", err)
	}
	if info.IsDir() {
		return Attachment{}, &UnsupportedInputError{Name: name, Reason: "is a directory"}
	}
	// Raw files far above the limit are refused before reading them
	if info.Size() > opts.MaxBytes*8 {
		return Attachment{}, &UnsupportedInputError{
			Name:   name,
			Reason: fmt.Sprintf("file is %s, limit is %s", util.FormatSize(info.Size()), util.FormatSize(opts.MaxBytes)),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("reading attachment: %w", err)
	}
	return Decode(name, data, opts)
}

// Decode validates data and encodes it as an attachment named name.
func Decode(name string, data []byte, opts Options) (Attachment, error) {
	opts = opts.withDefaults()
	if len(data) == 0 {
		return Attachment{}, &UnsupportedInputError{Name: name, Reason: "file is empty"}
	}

	var (
		a   Attachment
		err error
	)
	switch mediaType := sniff(data); mediaType {
	case mediaDICOM:
		a, err = decodeDICOM(name, data)
	case "image/png", "image/jpeg", "image/gif", "image/webp", "image/bmp", "image/tiff":
		a, err = decodeImage(name, mediaType, data, opts.MaxDimension)
	default:
		return Attachment{}, &UnsupportedInputError{Name: name, Reason: "not an image or DICOM file (" + mediaType + ")"}
	}
	if err != nil {
		return Attachment{}, err
	}

	if a.Size() > opts.MaxBytes {
		return Attachment{}, &UnsupportedInputError{
			Name:   name,
			Reason: fmt.Sprintf("encoded size %s exceeds limit %s", util.FormatSize(a.Size()), util.FormatSize(opts.MaxBytes)),
		}
	}
	return a, nil
}

// sniff returns the media type of data.
func sniff(data []byte) string {
	if len(data) >= 132 && string(data[128:132]) == "DICM" {
		return mediaDICOM
	}
	if len(data) >= 4 {
		switch string(data[:4]) {
		case "II*\x00", "MM\x00*":
			return "image/tiff"
		}
	}
	return http.DetectContentType(data)
}

// decodeImage checks the image decodes, downscales it past maxDim and
// re-encodes formats the record service cannot display.
func decodeImage(name, mediaType string, data []byte, maxDim int) (Attachment, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Attachment{}, &UnsupportedInputError{Name: name, Reason: "image is corrupt: " + err.Error()}
	}

	b := img.Bounds()
	a := Attachment{Name: name, MediaType: mediaType, Data: data, Width: b.Dx(), Height: b.Dy()}

	if b.Dx() > maxDim || b.Dy() > maxDim {
		img = downscale(img, maxDim)
		a.Width, a.Height = img.Bounds().Dx(), img.Bounds().Dy()
		a.Resized = true
	}

	switch {
	case a.Resized && mediaType == "image/jpeg":
		a.Data, err = encodeJPEG(img)
	case a.Resized, mediaType == "image/webp", mediaType == "image/bmp", mediaType == "image/tiff":
		a.MediaType = "image/png"
		a.Data, err = encodePNG(img)
	}
	if err != nil {
		return Attachment{}, fmt.Errorf("encoding %s: %w", name, err)
	}
	return a, nil
}

// downscale fits img into a maxDim square, keeping its aspect ratio.
func downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = max(1, h*maxDim/w)
		w = maxDim
	} else {
		w = max(1, w*maxDim/h)
		h = maxDim
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
