package attachment

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
	"golang.org/x/image/bmp"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(w, h)); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func mustNewElement(t *testing.T, tg tag.Tag, value interface{}) *dicom.Element {
	t.Helper()
	elem, err := dicom.NewElement(tg, value)
	if err != nil {
		t.Fatalf("NewElement(%v) error = %v", tg, err)
	}
	return elem
}

func dicomBytes(t *testing.T) []byte {
	t.Helper()
	ds := dicom.Dataset{Elements: []*dicom.Element{
		mustNewElement(t, tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.4"}),
		mustNewElement(t, tag.MediaStorageSOPInstanceUID, []string{"1.2.3.4.5"}),
		mustNewElement(t, tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustNewElement(t, tag.PatientName, []string{"Doe^Jane"}),
		mustNewElement(t, tag.PatientID, []string{"PID123"}),
		mustNewElement(t, tag.Modality, []string{"MR"}),
		mustNewElement(t, tag.StudyDescription, []string{"Brain MRI"}),
		mustNewElement(t, tag.Rows, []int{64}),
		mustNewElement(t, tag.Columns, []int{64}),
	}}
	var buf bytes.Buffer
	if err := dicom.Write(&buf, ds); err != nil {
		t.Fatalf("dicom.Write() error = %v", err)
	}
	return buf.Bytes()
}

func TestDecode_SmallPNGUnchanged(t *testing.T) {
	data := pngBytes(t, 40, 30)

	a, err := Decode("scan.png", data, Options{})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if a.MediaType != "image/png" {
		t.Errorf("Expected image/png, got %s", a.MediaType)
	}
	if a.Resized {
		t.Error("Expected small image not to be resized")
	}
	if !bytes.Equal(a.Data, data) {
		t.Error("Expected original bytes to be kept")
	}
	if a.Width != 40 || a.Height != 30 {
		t.Errorf("Expected 40x30, got %dx%d", a.Width, a.Height)
	}
	if !strings.HasPrefix(a.DataURL(), "data:image/png;base64,") {
		t.Errorf("Unexpected data URL prefix: %.40s", a.DataURL())
	}
}

func TestDecode_Downscale(t *testing.T) {
	tests := []struct {
		name      string
		w, h      int
		maxDim    int
		wantW     int
		wantH     int
		wantMedia string
		encode    func(*bytes.Buffer, image.Image) error
	}{
		{
			name: "wide png", w: 400, h: 100, maxDim: 200, wantW: 200, wantH: 50, wantMedia: "image/png",
			encode: func(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) },
		},
		{
			name: "tall jpeg", w: 100, h: 300, maxDim: 150, wantW: 50, wantH: 150, wantMedia: "image/jpeg",
			encode: func(b *bytes.Buffer, img image.Image) error { return jpeg.Encode(b, img, nil) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf, testImage(tt.w, tt.h)); err != nil {
				t.Fatalf("encode error = %v", err)
			}

			a, err := Decode("img", buf.Bytes(), Options{MaxDimension: tt.maxDim})
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !a.Resized {
				t.Error("Expected image to be resized")
			}
			if a.Width != tt.wantW || a.Height != tt.wantH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.wantW, tt.wantH, a.Width, a.Height)
			}
			if a.MediaType != tt.wantMedia {
				t.Errorf("Expected %s, got %s", tt.wantMedia, a.MediaType)
			}
			cfg, _, err := image.DecodeConfig(bytes.NewReader(a.Data))
			if err != nil {
				t.Fatalf("re-encoded image does not decode: %v", err)
			}
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Errorf("Expected encoded %dx%d, got %dx%d", tt.wantW, tt.wantH, cfg.Width, cfg.Height)
			}
		})
	}
}

func TestDecode_BMPConvertedToPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, testImage(20, 10)); err != nil {
		t.Fatalf("bmp.Encode() error = %v", err)
	}

	a, err := Decode("scan.bmp", buf.Bytes(), Options{})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if a.MediaType != "image/png" {
		t.Errorf("Expected image/png, got %s", a.MediaType)
	}
	if a.Resized {
		t.Error("Expected small bmp not to be resized")
	}
}

func TestDecode_Rejections(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		opts Options
		want string
	}{
		{"empty", nil, Options{}, "empty"},
		{"text", []byte("hello, this is not an image"), Options{}, "not an image"},
		{"corrupt png", append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 16)...), Options{}, "corrupt"},
		{"too large", pngBytes(t, 40, 40), Options{MaxBytes: 10}, "exceeds limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode("file", tt.data, tt.opts)
			var ue *UnsupportedInputError
			if !errors.As(err, &ue) {
				t.Fatalf("Expected UnsupportedInputError, got %v", err)
			}
			if !strings.Contains(ue.Reason, tt.want) {
				t.Errorf("Expected reason containing %q, got %q", tt.want, ue.Reason)
			}
		})
	}
}

func TestDecode_DICOM(t *testing.T) {
	data := dicomBytes(t)

	a, err := Decode("study.dcm", data, Options{})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if a.MediaType != "application/dicom" {
		t.Errorf("Expected application/dicom, got %s", a.MediaType)
	}
	if !bytes.Equal(a.Data, data) {
		t.Error("Expected DICOM bytes to be kept")
	}

	tests := []struct {
		name string
		want string
	}{
		{"PatientName", "Doe^Jane"},
		{"modality", "MR"},
		{"StudyDescription", "Brain MRI"},
		{"Manufacturer", ""},
	}
	for _, tt := range tests {
		got, err := a.Value(tt.name)
		if err != nil {
			t.Errorf("Value(%q) error = %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Expected %s=%q, got %q", tt.name, tt.want, got)
		}
	}
	if !strings.Contains(a.Describe(), "DICOM") {
		t.Errorf("Expected DICOM description, got %q", a.Describe())
	}
}

func TestLookupTag(t *testing.T) {
	if _, err := LookupTag("patientname"); err != nil {
		t.Errorf("Expected case-insensitive match, got %v", err)
	}

	_, err := LookupTag("PatientNme")
	if err == nil || !strings.Contains(err.Error(), `"PatientName"`) {
		t.Errorf("Expected suggestion for PatientName, got %v", err)
	}

	_, err = LookupTag("completely-unrelated-attribute")
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("Expected plain unknown tag error, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.png")
	if err := os.WriteFile(path, pngBytes(t, 10, 10), 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if a.Name != "scan.png" {
		t.Errorf("Expected name scan.png, got %s", a.Name)
	}
	ref := a.Ref()
	if ref.Size != a.Size() || ref.DataURL != a.DataURL() {
		t.Errorf("Ref does not match attachment: %+v", ref)
	}

	var ue *UnsupportedInputError
	if _, err := Load(dir, Options{}); !errors.As(err, &ue) {
		t.Errorf("Expected UnsupportedInputError for a directory, got %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.png"), Options{}); err == nil {
		t.Error("Expected error for a missing file")
	}
}
