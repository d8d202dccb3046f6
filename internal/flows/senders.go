package flows

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mrsinham/medbrain/internal/auth"
	"github.com/mrsinham/medbrain/internal/client"
	"github.com/mrsinham/medbrain/internal/session"
)

// RecordCreator stores prescriptions.
type RecordCreator interface {
	CreatePrescription(ctx context.Context, d client.PrescriptionDraft) (client.Record, error)
}

// Predictor runs the symptom prediction.
type Predictor interface {
	Predict(ctx context.Context, s client.Symptoms) (string, error)
}

// ProfileUpdater stores profile fields.
type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, fields map[string]any) error
}

// PrescriptionSender creates a record from a completed prescription session
// and returns its id.
func PrescriptionSender(rc RecordCreator) session.Sender {
	return session.SenderFunc(func(ctx context.Context, snap session.Snapshot) (string, error) {
		draft, err := Draft(snap)
		if err != nil {
			return "", err
		}
		rec, err := rc.CreatePrescription(ctx, draft)
		if err != nil {
			return "", err
		}
		return rec.ID, nil
	})
}

// QuizSender sends the six answers and returns the predicted disease.
func QuizSender(p Predictor) session.Sender {
	return session.SenderFunc(func(ctx context.Context, snap session.Snapshot) (string, error) {
		return p.Predict(ctx, Symptoms(snap))
	})
}

// ProfileSender posts every filled profile field.
func ProfileSender(pu ProfileUpdater) session.Sender {
	return session.SenderFunc(func(ctx context.Context, snap session.Snapshot) (string, error) {
		return "", pu.UpdateProfile(ctx, ProfileFields(snap))
	})
}

// Draft builds the record payload of a prescription snapshot.
func Draft(snap session.Snapshot) (client.PrescriptionDraft, error) {
	d := client.PrescriptionDraft{
		DoctorName:   snap.Get("author").String(),
		HospitalName: snap.Get("organization").String(),
		Date:         snap.Get("date").String(),
	}

	// Dates go out as calendar dates
	if t, err := snap.Get("date").Time(); err == nil {
		d.Date = t.Format(session.DateLayout)
	}

	c, ok := snap.Get("location").Coordinates()
	if !ok {
		return client.PrescriptionDraft{}, fmt.Errorf("location is not set")
	}
	d.Location = client.Location{Lat: c.Lat, Lng: c.Lng}

	for _, row := range snap.Rows("items") {
		d.Medicines = append(d.Medicines, client.Medicine{
			Name:     row["name"].String(),
			Dosage:   row["dosage"].String(),
			Duration: row["duration"].String(),
		})
	}

	if ref, ok := snap.Get("document").File(); ok && ref.DataURL != "" {
		d.Document = &client.Document{Name: ref.Name, DataURL: ref.DataURL}
	}
	return d, nil
}

// Symptoms maps a quiz snapshot to the prediction request.
func Symptoms(snap session.Snapshot) client.Symptoms {
	return client.Symptoms{
		Age:      snap.Get("age").String(),
		Gender:   snap.Get("gender").String(),
		Country:  snap.Get("country").String(),
		Symptom1: snap.Get("symptom1").String(),
		Symptom2: snap.Get("symptom2").String(),
		Symptom3: snap.Get("symptom3").String(),
	}
}

// ProfileFields returns the non-empty fields of a profile snapshot. Numbers are
// sent as JSON numbers.
func ProfileFields(snap session.Snapshot) map[string]any {
	out := make(map[string]any)
	for _, key := range snap.Keys() {
		v := snap.Get(key)
		if v.IsEmpty() {
			continue
		}
		if v.Kind() == session.KindNumber {
			if f, err := v.Float(); err == nil {
				out[key] = f
				continue
			}
		}
		out[key] = v.String()
	}
	return out
}

// PrefillProfile copies the known identity fields into a profile session.
func PrefillProfile(s *session.Session, id auth.Identity) error {
	fields := map[string]session.Value{
		"fullName": session.Text(id.FullName),
		"email":    session.Text(id.Email),
		"mobile":   session.Text(id.Mobile),
		"gender":   session.Text(id.Gender),
	}
	if id.Age > 0 {
		fields["age"] = session.Number(strconv.Itoa(id.Age))
	}
	for key, v := range fields {
		if v.String() == "" {
			continue
		}
		if err := s.Set(key, v); err != nil {
			return fmt.Errorf("prefilling %s: %w", key, err)
		}
	}
	return nil
}
