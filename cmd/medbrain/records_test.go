package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mrsinham/medbrain/internal/client"
)

// recordsServer serves body as the record list, in the order given.
func recordsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api"+client.DefaultPaths.Records {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testApp(srv *httptest.Server) *app {
	return &app{
		logger: zerolog.Nop(),
		client: client.New(client.Options{
			APIURL: srv.URL + "/api",
			Token:  "token",
			Logger: zerolog.Nop(),
		}),
	}
}

func recordIDs(recs []client.Record) string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return strings.Join(ids, ",")
}

func TestListRecords_Order(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{
			name:     "without creation times",
			body:     `[{"_id":"old"},{"_id":"mid"},{"_id":"new"}]`,
			expected: "new,mid,old",
		},
		{
			name: "with creation times",
			body: `[{"_id":"mid","createdAt":"2024-03-02T00:00:00Z"},
				{"_id":"new","createdAt":"2024-03-03T00:00:00Z"},
				{"_id":"old","createdAt":"2024-03-01T00:00:00Z"}]`,
			expected: "new,mid,old",
		},
		{
			name:     "single record",
			body:     `[{"_id":"only"}]`,
			expected: "only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testApp(recordsServer(t, tt.body))
			recs, err := a.listRecords(context.Background())
			if err != nil {
				t.Fatalf("listRecords() error = %v", err)
			}
			if got := recordIDs(recs); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestListRecords_RepeatedCallsKeepOrder(t *testing.T) {
	a := testApp(recordsServer(t, `[{"_id":"old"},{"_id":"mid"},{"_id":"new"}]`))
	for i := range 3 {
		recs, err := a.listRecords(context.Background())
		if err != nil {
			t.Fatalf("listRecords() error = %v", err)
		}
		if got := recordIDs(recs); got != "new,mid,old" {
			t.Errorf("Call %d: expected new,mid,old, got %s", i+1, got)
		}
	}
}

func TestListRecords_NotSignedIn(t *testing.T) {
	a := testApp(recordsServer(t, `[]`))
	a.client = a.client.WithToken("")
	if _, err := a.listRecords(context.Background()); err != errNotSignedIn {
		t.Errorf("Expected errNotSignedIn, got %v", err)
	}
}

func TestPrintRecords_NewestFirstWithoutTimestamps(t *testing.T) {
	a := testApp(recordsServer(t, `[{"_id":"old","medicines":[]},{"_id":"new","medicines":[]}]`))
	recs, err := a.listRecords(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	printRecords(&out, recs)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %q", out.String())
	}
	if !strings.HasPrefix(lines[0], "new") {
		t.Errorf("Expected newest record first, got %q", lines[0])
	}
}
