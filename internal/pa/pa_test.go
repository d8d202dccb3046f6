package pa

import (
	"bytes"
	"image/png"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const formURL = "https://forms.example.com/d/e/abc/viewform"

func TestNewRequest(t *testing.T) {
	r, err := NewRequest(formURL)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if !strings.HasPrefix(r.PrescriptionID, IDPrefix) {
		t.Errorf("Expected id prefix %q, got %q", IDPrefix, r.PrescriptionID)
	}
	if len(r.PrescriptionID) != len(IDPrefix)+9 {
		t.Errorf("Expected 9 random characters, got %q", r.PrescriptionID)
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		t.Fatalf("generated url does not parse: %v", err)
	}
	if got := u.Query().Get("prescriptionId"); got != r.PrescriptionID {
		t.Errorf("Expected prescriptionId %q, got %q", r.PrescriptionID, got)
	}
	if !strings.HasPrefix(r.URL, formURL+"?") {
		t.Errorf("Expected url based on form url, got %q", r.URL)
	}

	other, _ := NewRequest(formURL)
	if other.PrescriptionID == r.PrescriptionID {
		t.Error("Expected a fresh id per request")
	}
}

func TestNewRequest_KeepsExistingQuery(t *testing.T) {
	r, err := NewRequest(formURL + "?usp=sf_link")
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	u, _ := url.Parse(r.URL)
	if u.Query().Get("usp") != "sf_link" {
		t.Errorf("Expected existing query to be kept, got %q", r.URL)
	}
}

func TestNewRequest_RejectsRelative(t *testing.T) {
	for _, in := range []string{"", "viewform", "/d/e/abc"} {
		if _, err := NewRequest(in); err == nil {
			t.Errorf("Expected error for %q", in)
		}
	}
}

func TestRender(t *testing.T) {
	r, err := NewRequest(formURL)
	if err != nil {
		t.Fatal(err)
	}

	s, err := r.Terminal()
	if err != nil {
		t.Fatalf("Terminal() error = %v", err)
	}
	if len(strings.Split(strings.TrimSpace(s), "\n")) < 10 {
		t.Errorf("Expected a multi-line qr code, got %q", s)
	}

	path := filepath.Join(t.TempDir(), "qr.png")
	if err := r.WritePNG(path, 256); err != nil {
		t.Fatalf("WritePNG() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("qr png does not decode: %v", err)
	}
	if img.Bounds().Dx() != 256 {
		t.Errorf("Expected 256px wide, got %d", img.Bounds().Dx())
	}
	if img.Bounds().Dy() <= 256 {
		t.Errorf("Expected a caption below the code, got height %d", img.Bounds().Dy())
	}
}

func TestCaptionImage(t *testing.T) {
	img := captionImage("prescription-abc123def", 256)
	if img.Bounds().Dx() != 256 {
		t.Errorf("Expected caption as wide as the code, got %d", img.Bounds().Dx())
	}

	dark := 0
	for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y; y++ {
		for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r < 0x8000 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Error("Expected caption text to be drawn")
	}
}
