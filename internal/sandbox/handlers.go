package sandbox

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mrsinham/medbrain/internal/auth"
	"github.com/mrsinham/medbrain/internal/client"
)

// maxUpload bounds a multipart prescription body.
const maxUpload = 16 << 20

type identityResponse struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName"`
	Age      int    `json:"age"`
	Mobile   string `json:"mobile"`
	Gender   string `json:"gender"`
	Email    string `json:"email"`
	Token    string `json:"token,omitempty"`
}

func toResponse(id auth.Identity) identityResponse {
	return identityResponse{
		ID:       id.Subject,
		FullName: id.FullName,
		Age:      id.Age,
		Mobile:   id.Mobile,
		Gender:   id.Gender,
		Email:    id.Email,
	}
}

func (s *Server) handleLogin(c echo.Context) error {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid credentials payload")
	}

	s.mu.RLock()
	acc, ok := s.accounts[strings.ToLower(strings.TrimSpace(creds.Email))]
	s.mu.RUnlock()
	if !ok || acc.password != creds.Password {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}

	token, err := s.issuer.Issue(acc.identity)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Expires:  s.now().Add(24 * time.Hour),
	})

	resp := toResponse(acc.identity)
	resp.Token = token
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCheck(c echo.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accountFor(identityOf(c))
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unknown account")
	}
	return c.JSON(http.StatusOK, toResponse(acc.identity))
}

func (s *Server) handleUpdateProfile(c echo.Context) error {
	var fields map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&fields); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "profile must be a JSON object")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accountFor(identityOf(c))
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unknown account")
	}

	for k, v := range fields {
		acc.profile[k] = v
	}
	// Identity fields are mirrored on the account
	if v, ok := fields["fullName"].(string); ok && v != "" {
		acc.identity.FullName = v
	}
	if v, ok := fields["mobile"].(string); ok {
		acc.identity.Mobile = v
	}
	if v, ok := fields["gender"].(string); ok {
		acc.identity.Gender = v
	}
	switch v := fields["age"].(type) {
	case float64:
		acc.identity.Age = int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			acc.identity.Age = n
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Profile updated successfully"})
}

func (s *Server) handleListRecords(c echo.Context) error {
	recs := s.Records(identityOf(c).Subject)
	if recs == nil {
		recs = []client.Record{}
	}
	if !s.bareList {
		return c.JSON(http.StatusOK, recs)
	}

	// Insertion order only, as the records service keeps them
	bare := make([]map[string]any, len(recs))
	for i, r := range recs {
		bare[i] = map[string]any{
			"_id":          r.ID,
			"doctorName":   r.DoctorName,
			"hospitalName": r.HospitalName,
			"date":         r.Date,
			"location":     r.Location,
			"medicines":    r.Medicines,
		}
	}
	return c.JSON(http.StatusOK, bare)
}

func (s *Server) handleGetRecord(c echo.Context) error {
	id := c.Param("id")
	for _, r := range s.Records(identityOf(c).Subject) {
		if r.ID == id {
			return c.JSON(http.StatusOK, r)
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
}

func (s *Server) handleCreateRecord(c echo.Context) error {
	req := c.Request()
	if err := req.ParseMultipartForm(maxUpload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "expected a multipart form")
	}

	rec := client.Record{
		DoctorName:     strings.TrimSpace(req.FormValue("doctorName")),
		HospitalName:   strings.TrimSpace(req.FormValue("hospitalName")),
		Date:           strings.TrimSpace(req.FormValue("date")),
		DocumentUpload: req.FormValue("documentUpload"),
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"doctorName", rec.DoctorName},
		{"hospitalName", rec.HospitalName},
		{"date", rec.Date},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "missing fields: "+strings.Join(missing, ", "))
	}
	if _, err := time.Parse("2006-01-02", rec.Date); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	var loc client.Location
	if err := json.Unmarshal([]byte(req.FormValue("location")), &loc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "location must be a JSON object")
	}
	rec.Location = &loc

	if err := json.Unmarshal([]byte(req.FormValue("medicines")), &rec.Medicines); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "medicines must be a JSON array")
	}
	if len(rec.Medicines) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one medicine is required")
	}
	if rec.DocumentUpload != "" && !strings.HasPrefix(rec.DocumentUpload, "data:") {
		return echo.NewHTTPError(http.StatusBadRequest, "documentUpload must be a data URL")
	}

	rec.ID = strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
	rec.CreatedAt = s.now().UTC()

	subject := identityOf(c).Subject
	s.mu.Lock()
	s.records[subject] = append(s.records[subject], rec)
	s.mu.Unlock()

	return c.JSON(http.StatusCreated, rec)
}

func (s *Server) handlePredict(c echo.Context) error {
	var in map[string]string
	if err := json.NewDecoder(c.Request().Body).Decode(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "expected a JSON object of strings")
	}
	for _, k := range []string{"Age", "Gender", "Country", "Symptom 1", "Symptom 2", "Symptom 3"} {
		if strings.TrimSpace(in[k]) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "missing "+k)
		}
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(in["Age"]), 64); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Age must be a number")
	}

	disease := Predict(in["Symptom 1"], in["Symptom 2"], in["Symptom 3"])
	return c.JSON(http.StatusOK, map[string]string{"Disease": disease})
}

func (s *Server) handleChat(c echo.Context) error {
	var in struct {
		Question string `json:"question"`
	}
	if err := c.Bind(&in); err != nil || strings.TrimSpace(in.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}
	return c.JSON(http.StatusOK, map[string]string{"result": Answer(in.Question)})
}
