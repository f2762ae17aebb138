package scenario

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	scenariomodel "github.com/mudouban/ai-asks-human/backend/internal/model/scenario"
)

func setupRouter() *chi.Mux {
	handler := New(scenariomodel.NewMemoryStore(scenariomodel.Seed()))
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func TestListScenarios(t *testing.T) {
	r := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/scenarios", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var list []scenariomodel.Scenario
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("expected 4 scenarios, got %d", len(list))
	}
}

func TestGetScenario(t *testing.T) {
	r := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/scenarios/career-advice", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var sc scenariomodel.Scenario
	if err := json.NewDecoder(resp.Body).Decode(&sc); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if sc.ID != "career-advice" || sc.SystemPrompt == "" {
		t.Fatalf("unexpected scenario: %+v", sc)
	}
}

func TestGetScenarioNotFound(t *testing.T) {
	r := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/scenarios/unknown", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
