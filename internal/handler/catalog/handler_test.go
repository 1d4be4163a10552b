package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/strombreaker/widget/internal/model/activity"
	chatService "github.com/zhouzirui/strombreaker/widget/internal/service/chat"
)

func newRouter() http.Handler {
	r := chi.NewRouter()
	New(activity.NewMemoryStore(activity.Seed())).RegisterRoutes(r)
	return r
}

func TestListCatalog(t *testing.T) {
	resp := httptest.NewRecorder()
	newRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/widget/catalog", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var cards []activity.Card
	if err := json.Unmarshal(resp.Body.Bytes(), &cards); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cards) != 4 {
		t.Fatalf("expected 4 cards, got %d", len(cards))
	}
	for _, card := range cards {
		seconds, ok := chatService.NominalDuration(card.Kind)
		if !ok {
			t.Fatalf("catalog lists unknown activity %q", card.Kind)
		}
		if seconds != card.Duration {
			t.Fatalf("%s: catalog duration %d, controller logs %d", card.Kind, card.Duration, seconds)
		}
	}
}

func TestGetCatalogEntry(t *testing.T) {
	resp := httptest.NewRecorder()
	newRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/widget/catalog/meditation", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var card activity.Card
	if err := json.Unmarshal(resp.Body.Bytes(), &card); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !card.Timed || card.Duration != 300 {
		t.Fatalf("unexpected card %+v", card)
	}

	resp = httptest.NewRecorder()
	newRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/widget/catalog/yoga", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
