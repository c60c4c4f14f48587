package spacy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/autodoc-backend/internal/domain"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

func TestEntitiesSortsAndConvertsOffsets(t *testing.T) {
	text := "Compañía Acme Corp solicita 25 licencias"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/ents" {
			t.Errorf("request: want POST /ents got %s %s", r.Method, r.URL.Path)
		}
		var req entsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Text != text {
			t.Errorf("text: want=%q got=%q", text, req.Text)
		}
		// Character offsets, listed out of order.
		_, _ = w.Write([]byte(`{"ents":[
			{"text":"25","label":"CARDINAL","start":28,"end":30},
			{"text":"Acme Corp","label":"org","start":9,"end":18}
		]}`))
	}))
	defer srv.Close()

	c, err := NewClient(logger.Nop(), Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	got, err := c.Entities(context.Background(), text)
	if err != nil {
		t.Fatalf("Entities: %v", err)
	}
	want := []domain.Entity{
		{Text: "Acme Corp", Label: "ORG", Start: 11, End: 20},
		{Text: "25", Label: "CARDINAL", Start: 30, End: 32},
	}
	if len(got) != len(want) {
		t.Fatalf("entities: want=%d got=%d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entity %d: want=%+v got=%+v", i, want[i], got[i])
		}
		if text[got[i].Start:got[i].End] != got[i].Text {
			t.Fatalf("entity %d: byte span %q does not match %q", i, text[got[i].Start:got[i].End], got[i].Text)
		}
	}
}

func TestEntitiesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := NewClient(logger.Nop(), Config{BaseURL: srv.URL})
	if _, err := c.Entities(context.Background(), "x"); err == nil {
		t.Fatalf("Entities: want error on 500")
	}
}
