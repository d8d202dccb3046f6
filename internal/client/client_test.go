package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrsinham/medbrain/internal/auth"
)

func newTestClient(t *testing.T, h http.Handler, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{
		APIURL:     srv.URL + "/api",
		PredictURL: srv.URL + "/predict",
		ChatURL:    srv.URL + "/api/content",
		Token:      token,
		Logger:     zerolog.Nop(),
	})
}

func TestCreatePrescription_MultipartBody(t *testing.T) {
	var got struct {
		doctor, hospital, date, location, medicines, document, token, rid string
	}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/prescriptions" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error = %v", err)
		}
		got.doctor = r.FormValue("doctorName")
		got.hospital = r.FormValue("hospitalName")
		got.date = r.FormValue("date")
		got.location = r.FormValue("location")
		got.medicines = r.FormValue("medicines")
		got.document = r.FormValue("documentUpload")
		got.token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		got.rid = r.Header.Get(RequestIDHeader)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"_id":"abc123","doctorName":"Dr. A","medicines":[{"name":"X","dosage":"5mg","timing":"7d"}]}`)
	})
	c := newTestClient(t, h, "tok")

	rec, err := c.CreatePrescription(context.Background(), PrescriptionDraft{
		DoctorName:   "Dr. A",
		HospitalName: "City",
		Date:         "2024-05-01",
		Location:     Location{Lat: 12.9, Lng: 77.6},
		Medicines:    []Medicine{{Name: "X", Dosage: "5mg", Duration: "7d"}},
		Document:     &Document{Name: "scan.png", DataURL: "data:image/png;base64,AAAA"},
	})
	if err != nil {
		t.Fatalf("CreatePrescription() error = %v", err)
	}
	if rec.ID != "abc123" {
		t.Errorf("Expected record id abc123, got %q", rec.ID)
	}
	if got.doctor != "Dr. A" || got.hospital != "City" || got.date != "2024-05-01" {
		t.Errorf("Unexpected scalar fields: %+v", got)
	}
	if got.location != `{"lat":12.9,"lng":77.6}` {
		t.Errorf("Expected JSON location, got %q", got.location)
	}
	if got.medicines != `[{"name":"X","dosage":"5mg","timing":"7d"}]` {
		t.Errorf("Expected JSON medicines, got %q", got.medicines)
	}
	if got.document != "data:image/png;base64,AAAA" {
		t.Errorf("Expected document data URL, got %q", got.document)
	}
	if got.token != "tok" {
		t.Errorf("Expected bearer token tok, got %q", got.token)
	}
	if got.rid == "" {
		t.Error("Expected a request id header")
	}
}

func TestListPrescriptions_NewestFirst(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"_id":"a","createdAt":"2024-01-01T00:00:00Z","location":"{\"lat\":1,\"lng\":2}","medicines":"[]"},
			{"_id":"b","createdAt":"2024-03-01T00:00:00Z"},
			{"_id":"c","createdAt":"2024-02-01T00:00:00Z"}
		]`)
	})
	c := newTestClient(t, h, "tok")

	recs, err := c.ListPrescriptions(context.Background())
	if err != nil {
		t.Fatalf("ListPrescriptions() error = %v", err)
	}
	var ids []string
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	if strings.Join(ids, ",") != "b,c,a" {
		t.Errorf("Expected order b,c,a, got %v", ids)
	}
	last := recs[2]
	if last.Location == nil || last.Location.Lat != 1 || last.Location.Lng != 2 {
		t.Errorf("Expected string-encoded location to decode, got %+v", last.Location)
	}
}

func TestNewestFirst_WithoutTimestamps(t *testing.T) {
	recs := []Record{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	NewestFirst(recs)
	if recs[0].ID != "3" || recs[2].ID != "1" {
		t.Errorf("Expected reversed service order, got %v", recs)
	}
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantAuth  bool
		retryable bool
		wantMsg   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"Invalid token"}`, true, false, "Invalid token"},
		{"forbidden", http.StatusForbidden, ``, true, false, ""},
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, false, true, "boom"},
		{"bad request", http.StatusBadRequest, `plain text`, false, false, "plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			c := newTestClient(t, h, "tok")

			_, err := c.GetPrescription(context.Background(), "x")
			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("Expected StatusError, got %v", err)
			}
			if se.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, se.StatusCode)
			}
			if se.Message != tt.wantMsg {
				t.Errorf("Expected message %q, got %q", tt.wantMsg, se.Message)
			}
			if errors.Is(err, auth.ErrUnauthenticated) != tt.wantAuth {
				t.Errorf("Expected unauthenticated=%v for %d", tt.wantAuth, tt.status)
			}
			if IsRetryable(err) != tt.retryable {
				t.Errorf("Expected retryable=%v for %d", tt.retryable, tt.status)
			}
		})
	}
}

func TestNetworkErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Options{APIURL: url, Token: "tok", Logger: zerolog.Nop(), Timeout: time.Second})
	_, err := c.ListPrescriptions(context.Background())
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("Expected NetworkError, got %v", err)
	}
	if !IsRetryable(err) {
		t.Error("Expected network error to be retryable")
	}
}

func TestCheck(t *testing.T) {
	t.Run("no token", func(t *testing.T) {
		var hits atomic.Int32
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}), "")
		if _, err := c.Check(context.Background()); !errors.Is(err, auth.ErrUnauthenticated) {
			t.Errorf("Expected ErrUnauthenticated, got %v", err)
		}
		if hits.Load() != 0 {
			t.Errorf("Expected no request without a token, got %d", hits.Load())
		}
	})

	t.Run("string age", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ck, err := r.Cookie(auth.CookieName); err != nil || ck.Value != "tok" {
				t.Errorf("Expected jwt cookie tok, got %v", ck)
			}
			_, _ = io.WriteString(w, `{"fullName":"Ada Lovelace","age":"36","mobile":"555","gender":"Female","email":"ada@example.com"}`)
		}), "tok")

		id, err := c.Check(context.Background())
		if err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		if id.FullName != "Ada Lovelace" || id.Age != 36 || id.Email != "ada@example.com" {
			t.Errorf("Unexpected identity %+v", id)
		}
		if id.Token != "tok" {
			t.Errorf("Expected token to be kept, got %q", id.Token)
		}
	})
}

func TestLogin_TokenFromCookie(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["email"] != "ada@example.com" || creds["password"] != "secret" {
			t.Errorf("Unexpected credentials %v", creds)
		}
		http.SetCookie(w, &http.Cookie{Name: auth.CookieName, Value: "cookie-token"})
		_, _ = io.WriteString(w, `{"fullName":"Ada","email":"ada@example.com"}`)
	})
	c := newTestClient(t, h, "")

	id, err := c.Login(context.Background(), "ada@example.com", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if id.Token != "cookie-token" {
		t.Errorf("Expected cookie-token, got %q", id.Token)
	}
}

func TestLogin_NoToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"fullName":"Ada"}`)
	}), "")
	if _, err := c.Login(context.Background(), "a", "b"); err == nil {
		t.Error("Expected error when no token is returned")
	}
}

func TestLogin_ExpiryFromToken(t *testing.T) {
	token, err := auth.NewIssuer([]byte("k"), time.Hour).Issue(auth.Identity{Subject: "ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"token": token, "fullName": "Ada"})
	}), "")

	id, err := c.Login(context.Background(), "ada@example.com", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if left := time.Until(id.ExpiresAt); left <= 0 || left > time.Hour {
		t.Errorf("Expected expiry within the hour, got %v", id.ExpiresAt)
	}
	if id.FullName != "Ada" {
		t.Errorf("Expected name from the response, got %q", id.FullName)
	}
}

func TestPredict_RequestKeys(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		for _, k := range []string{"Age", "Gender", "Country", "Symptom 1", "Symptom 2", "Symptom 3"} {
			if _, ok := body[k]; !ok {
				t.Errorf("Expected key %q in request", k)
			}
		}
		if body["Symptom 2"] != "cough" {
			t.Errorf("Expected Symptom 2 cough, got %q", body["Symptom 2"])
		}
		_, _ = io.WriteString(w, `{"Disease":"Common Cold"}`)
	})
	c := newTestClient(t, h, "")

	disease, err := c.Predict(context.Background(), Symptoms{
		Age: "30", Gender: "Male", Country: "India",
		Symptom1: "fever", Symptom2: "cough", Symptom3: "fatigue",
	})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if disease != "Common Cold" {
		t.Errorf("Expected Common Cold, got %q", disease)
	}
}

func TestAsk(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["question"] == "fail" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"result": "answer to " + body["question"]})
	})
	c := newTestClient(t, h, "")

	answer, err := c.Ask(context.Background(), "  what is flu?  ")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer != "answer to what is flu?" {
		t.Errorf("Expected trimmed question echo, got %q", answer)
	}

	if _, err := c.Ask(context.Background(), "   "); err == nil {
		t.Error("Expected error for blank question")
	}

	answer, err = c.AskOrFallback(context.Background(), "fail")
	if err == nil {
		t.Error("Expected error from failing chat")
	}
	if answer != ChatFallback {
		t.Errorf("Expected fallback text, got %q", answer)
	}
}

func TestUpdateProfile(t *testing.T) {
	var got map[string]any
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/update-profile" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"message":"ok"}`)
	})
	c := newTestClient(t, h, "tok")

	if err := c.UpdateProfile(context.Background(), map[string]any{"fullName": "Ada", "height": "170"}); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if got["fullName"] != "Ada" || got["height"] != "170" {
		t.Errorf("Unexpected profile body %v", got)
	}
}
