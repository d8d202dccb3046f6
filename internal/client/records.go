package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"
)

// Location is a captured geolocation.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Medicine is one prescribed item. Duration travels as "timing" on the wire.
type Medicine struct {
	Name     string `json:"name"`
	Dosage   string `json:"dosage"`
	Duration string `json:"timing"`
}

// Record is a stored prescription.
type Record struct {
	ID             string     `json:"_id"`
	DoctorName     string     `json:"doctorName"`
	HospitalName   string     `json:"hospitalName"`
	Date           string     `json:"date"`
	Location       *Location  `json:"location,omitempty"`
	Medicines      []Medicine `json:"medicines"`
	DocumentUpload string     `json:"documentUpload,omitempty"`
	CreatedAt      time.Time  `json:"createdAt,omitempty"`
}

// UnmarshalJSON accepts location and medicines either nested or as JSON-encoded strings.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var raw struct {
		plain
		Location  json.RawMessage `json:"location"`
		Medicines json.RawMessage `json:"medicines"`
		CreatedAt string          `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record(raw.plain)

	if err := decodeNested(raw.Location, &r.Location); err != nil {
		return fmt.Errorf("location: %w", err)
	}
	if err := decodeNested(raw.Medicines, &r.Medicines); err != nil {
		return fmt.Errorf("medicines: %w", err)
	}
	if raw.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, raw.CreatedAt); err == nil {
			r.CreatedAt = t
		}
	}
	return nil
}

// decodeNested unmarshals raw into out, unwrapping a JSON string first if needed.
func decodeNested(raw json.RawMessage, out any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if raw[0] == '"' {
		s, err := strconv.Unquote(string(raw))
		if err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		raw = json.RawMessage(s)
	}
	return json.Unmarshal(raw, out)
}

// Document is an attachment already encoded as a data URL.
type Document struct {
	Name    string
	DataURL string
}

// PrescriptionDraft is the payload of a new prescription.
type PrescriptionDraft struct {
	DoctorName   string
	HospitalName string
	Date         string
	Location     Location
	Medicines    []Medicine
	Document     *Document
}

// Encode writes the draft as a multipart form. Scalars are plain parts; location
// and medicines are JSON-encoded parts; the document is its data URL.
func (d PrescriptionDraft) Encode(w io.Writer) (contentType string, err error) {
	mw := multipart.NewWriter(w)

	fields := []struct{ name, value string }{
		{"doctorName", d.DoctorName},
		{"hospitalName", d.HospitalName},
		{"date", d.Date},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return "", fmt.Errorf("writing %s: %w", f.name, err)
		}
	}

	location, err := json.Marshal(d.Location)
	if err != nil {
		return "", fmt.Errorf("encoding location: %w", err)
	}
	if err := mw.WriteField("location", string(location)); err != nil {
		return "", fmt.Errorf("writing location: %w", err)
	}

	medicines := d.Medicines
	if medicines == nil {
		medicines = []Medicine{}
	}
	encoded, err := json.Marshal(medicines)
	if err != nil {
		return "", fmt.Errorf("encoding medicines: %w", err)
	}
	if err := mw.WriteField("medicines", string(encoded)); err != nil {
		return "", fmt.Errorf("writing medicines: %w", err)
	}

	if d.Document != nil && d.Document.DataURL != "" {
		if err := mw.WriteField("documentUpload", d.Document.DataURL); err != nil {
			return "", fmt.Errorf("writing document: %w", err)
		}
		if d.Document.Name != "" {
			if err := mw.WriteField("documentName", d.Document.Name); err != nil {
				return "", fmt.Errorf("writing document name: %w", err)
			}
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("closing multipart: %w", err)
	}
	return mw.FormDataContentType(), nil
}

// CreatePrescription posts a draft and returns the stored record.
func (c *Client) CreatePrescription(ctx context.Context, d PrescriptionDraft) (Record, error) {
	var body bytes.Buffer
	contentType, err := d.Encode(&body)
	if err != nil {
		return Record{}, fmt.Errorf("create prescription: %w", err)
	}

	var rec Record
	_, err = c.do(ctx, request{
		op:          "create prescription",
		method:      http.MethodPost,
		url:         c.apiURL + c.paths.Records,
		body:        &body,
		contentType: contentType,
		auth:        true,
	}, &rec)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ListPrescriptions returns the user's records, newest first.
func (c *Client) ListPrescriptions(ctx context.Context) ([]Record, error) {
	var recs []Record
	_, err := c.do(ctx, request{
		op:     "list prescriptions",
		method: http.MethodGet,
		url:    c.apiURL + c.paths.Records,
		auth:   true,
	}, &recs)
	if err != nil {
		return nil, err
	}
	NewestFirst(recs)
	return recs, nil
}

// NewestFirst orders records by creation time, newest first. When any record
// lacks a creation time the service order is reversed instead.
func NewestFirst(recs []Record) {
	for _, r := range recs {
		if r.CreatedAt.IsZero() {
			slices.Reverse(recs)
			return
		}
	}
	slices.SortStableFunc(recs, func(a, b Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// GetPrescription returns one record.
func (c *Client) GetPrescription(ctx context.Context, id string) (Record, error) {
	var rec Record
	_, err := c.do(ctx, request{
		op:     "get prescription",
		method: http.MethodGet,
		url:    c.apiURL + c.paths.Records + "/" + url.PathEscape(id),
		auth:   true,
	}, &rec)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}
