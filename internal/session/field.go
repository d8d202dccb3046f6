package session

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the semantic type of a field value.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindDate
	KindCoordinates
	KindFile
)

// DateLayout is the calendar date format accepted for date fields.
const DateLayout = "2006-01-02"

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindCoordinates:
		return "coordinates"
	case KindFile:
		return "file"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return KindText, nil
	case "number":
		return KindNumber, nil
	case "date":
		return KindDate, nil
	case "coordinates":
		return KindCoordinates, nil
	case "file":
		return KindFile, nil
	}
	return KindText, fmt.Errorf("unknown field kind %q", s)
}

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Valid reports whether both components are finite and in range.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// String formats the pair as "lat,lng".
func (c Coordinates) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// FileRef is a captured attachment, already content-encoded.
type FileRef struct {
	Name      string
	MediaType string
	Size      int64
	// DataURL holds the base64 data URL sent to the record service.
	DataURL string
}

// Value is the current content of one field. The zero Value is the empty value.
type Value struct {
	kind   Kind
	raw    string
	coords Coordinates
	file   *FileRef
	set    bool
}

// Text returns a text value.
func Text(s string) Value {
	return Value{kind: KindText, raw: s, set: true}
}

// Number returns a number value holding the raw user input.
func Number(s string) Value {
	return Value{kind: KindNumber, raw: s, set: true}
}

// Date returns a date value holding the raw user input.
func Date(s string) Value {
	return Value{kind: KindDate, raw: s, set: true}
}

// Coords returns a coordinates value.
func Coords(lat, lng float64) Value {
	return Value{kind: KindCoordinates, coords: Coordinates{Lat: lat, Lng: lng}, set: true}
}

// File returns a file value. A nil ref yields the empty value.
func File(ref *FileRef) Value {
	if ref == nil {
		return Value{}
	}
	cp := *ref
	return Value{kind: KindFile, raw: ref.Name, file: &cp, set: true}
}

// Of builds a value of the given kind from its textual form.
// Coordinates are parsed from "lat,lng".
func Of(kind Kind, s string) (Value, error) {
	switch kind {
	case KindText:
		return Text(s), nil
	case KindNumber:
		return Number(s), nil
	case KindDate:
		return Date(s), nil
	case KindCoordinates:
		lat, lng, ok := strings.Cut(s, ",")
		if !ok {
			return Value{}, fmt.Errorf("coordinates must be \"lat,lng\", got %q", s)
		}
		la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid latitude %q: %w", lat, err)
		}
		ln, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid longitude %q: %w", lng, err)
		}
		return Coords(la, ln), nil
	}
	return Value{}, fmt.Errorf("cannot build a %s value from text", kind)
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsSet reports whether the value was ever assigned.
func (v Value) IsSet() bool { return v.set }

// IsEmpty reports whether the value carries no content.
func (v Value) IsEmpty() bool {
	if !v.set {
		return true
	}
	switch v.kind {
	case KindCoordinates:
		return false
	case KindFile:
		return v.file == nil || v.file.DataURL == ""
	default:
		return strings.TrimSpace(v.raw) == ""
	}
}

// String returns the textual form of the value.
func (v Value) String() string {
	if v.kind == KindCoordinates && v.set {
		return v.coords.String()
	}
	return v.raw
}

// Float parses a number value.
func (v Value) Float() (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.raw), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", v.raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %q", v.raw)
	}
	return f, nil
}

// Time parses a date value as a calendar date or an RFC 3339 timestamp.
func (v Value) Time() (time.Time, error) {
	s := strings.TrimSpace(v.raw)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("not a date: %q", v.raw)
	}
	return t, nil
}

// Coordinates returns the pair held by a coordinates value.
func (v Value) Coordinates() (Coordinates, bool) {
	return v.coords, v.set && v.kind == KindCoordinates
}

// File returns a copy of the attachment held by a file value.
func (v Value) File() (FileRef, bool) {
	if v.file == nil {
		return FileRef{}, false
	}
	return *v.file, true
}

// clone returns a value that shares no memory with v.
func (v Value) clone() Value {
	if v.file != nil {
		cp := *v.file
		v.file = &cp
	}
	return v
}
