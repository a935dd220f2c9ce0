package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"neurodrive-service/internal/cache"
	"neurodrive-service/internal/cognitive"
	"neurodrive-service/internal/hub"
	"neurodrive-service/internal/models"
	"neurodrive-service/internal/session"
)

// newRedisHandler builds a handler over a scratch Redis database
// or skips the test when Redis is unreachable
func newRedisHandler(t *testing.T) *Handler {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	c, err := cache.NewRedisCache(addr, os.Getenv("REDIS_PASSWORD"), 15)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", addr, err)
	}
	if err := c.FlushDB(); err != nil {
		t.Fatalf("Failed to flush test database: %v", err)
	}
	t.Cleanup(func() {
		c.FlushDB()
		c.Close()
	})

	wsHub := hub.NewHub()
	go wsHub.Run()
	t.Cleanup(wsHub.Stop)

	return NewHandler(session.NewManager(cognitive.DefaultConfig()), c, wsHub)
}

func streamOnce(t *testing.T, h *Handler, payload models.StreamPayload) {
	t.Helper()
	rec := postJSON(t, h.StreamEEGHandler, "/api/v1/eeg/stream", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStreamHandlerHonorsSaveFlag(t *testing.T) {
	h := newRedisHandler(t)
	id := mustUUID(t)

	payload := models.StreamPayload{
		SessionID:  id,
		Timestamp:  time.Now(),
		SampleRate: 256,
		RawWindow:  sineChannels(10, 256, 512),
	}

	// Without the flag nothing accumulates for playback
	streamOnce(t, h, payload)
	samples, err := h.cache.GetRecentSamples(id, 10)
	if err != nil {
		t.Fatalf("Failed to read samples: %v", err)
	}
	if len(samples) != 0 {
		t.Fatalf("Expected no persisted samples, got %d", len(samples))
	}

	// The latest-state snapshot is kept regardless
	var last models.EEGRecord
	if err := h.cache.Get(cache.LatestSampleKeyPrefix+id.String(), &last); err != nil {
		t.Fatalf("Expected a latest-sample snapshot: %v", err)
	}

	payload.SaveToDB = true
	streamOnce(t, h, payload)
	samples, err = h.cache.GetRecentSamples(id, 10)
	if err != nil {
		t.Fatalf("Failed to read samples: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("Expected one persisted sample, got %d", len(samples))
	}
}

func TestDeleteSessionClearsAlertState(t *testing.T) {
	h := newRedisHandler(t)

	// Create a session through the handler to get a stored record
	rec := postJSON(t, h.CreateSessionHandler, "/api/v1/sessions",
		models.SessionCreate{Name: "cleanup check"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created models.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode session: %v", err)
	}

	h.maybeFireAlert(created.ID, 90, time.Now())

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+created.ID.String(), nil)
	req = mux.SetURLVars(req, map[string]string{"id": created.ID.String()})
	del := httptest.NewRecorder()
	h.DeleteSessionHandler(del, req)
	if del.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d: %s", del.Code, del.Body.String())
	}

	h.alertMu.Lock()
	_, kept := h.lastAlert[created.ID]
	h.alertMu.Unlock()
	if kept {
		t.Error("Expected the alert cooldown entry to be removed with the session")
	}
	if h.sessions.Count() != 0 {
		t.Errorf("Expected no evaluators left, got %d", h.sessions.Count())
	}
}

func TestCompleteSessionClearsAlertState(t *testing.T) {
	h := newRedisHandler(t)

	rec := postJSON(t, h.CreateSessionHandler, "/api/v1/sessions",
		models.SessionCreate{Name: "complete check"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created models.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode session: %v", err)
	}

	h.maybeFireAlert(created.ID, 90, time.Now())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+created.ID.String()+"/complete", nil)
	req = mux.SetURLVars(req, map[string]string{"id": created.ID.String()})
	done := httptest.NewRecorder()
	h.CompleteSessionHandler(done, req)
	if done.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", done.Code, done.Body.String())
	}

	h.alertMu.Lock()
	_, kept := h.lastAlert[created.ID]
	h.alertMu.Unlock()
	if kept {
		t.Error("Expected the alert cooldown entry to be removed on completion")
	}

	var completed models.Session
	if err := json.Unmarshal(done.Body.Bytes(), &completed); err != nil {
		t.Fatalf("Failed to decode session: %v", err)
	}
	if completed.Status != models.SessionCompleted {
		t.Errorf("Expected status %q, got %q", models.SessionCompleted, completed.Status)
	}
}
