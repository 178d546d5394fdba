package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSavePostsRecord(t *testing.T) {
	got := make(chan Record, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		var rec Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		got <- rec
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	rec := NewRecord("um hello", "Hello.", Metadata{SessionID: "s1", Format: "flac", AudioSeconds: 1.5})
	if err := New(srv.URL, time.Second).Save(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	r := <-got
	if _, err := uuid.Parse(r.ID); err != nil {
		t.Errorf("id %q: %v", r.ID, err)
	}
	if r.OriginalText != "um hello" || r.RefinedText != "Hello." || r.Status != "refined" {
		t.Errorf("record = %+v", r)
	}
	if r.Metadata.SessionID != "s1" || r.Metadata.CreatedAt == "" {
		t.Errorf("metadata = %+v", r.Metadata)
	}
}

func TestSaveReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "store down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := New(srv.URL, time.Second).Save(context.Background(), NewRecord("a", "b", Metadata{}))
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("err = %v", err)
	}
}

func TestDisabledClient(t *testing.T) {
	c := New("", time.Second)
	if c != nil {
		t.Fatal("expected nil client for empty url")
	}
	if err := c.Save(context.Background(), Record{}); err != nil {
		t.Errorf("nil client Save = %v", err)
	}
}

func TestRecordIDsUnique(t *testing.T) {
	a := NewRecord("x", "y", Metadata{})
	b := NewRecord("x", "y", Metadata{})
	if a.ID == b.ID {
		t.Error("duplicate ids")
	}
}
