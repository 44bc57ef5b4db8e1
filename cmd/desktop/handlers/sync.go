// Package handlers provides REST API handlers for the desktop dev
// harness: sync status, queue inspection and manual drain control.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/repstack/backend/internal/sync/queue"
	"github.com/repstack/backend/internal/sync/scheduler"
	"github.com/repstack/backend/internal/telemetry"
)

// ConnectivityBroadcaster notifies WebSocket clients of simulated
// network changes.
type ConnectivityBroadcaster interface {
	BroadcastConnectivityChanged(online bool)
}

// SyncHandler exposes the sync engine state over REST.
type SyncHandler struct {
	queue     *queue.Queue
	scheduler *scheduler.Scheduler
	wsHub     ConnectivityBroadcaster
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(q *queue.Queue, sched *scheduler.Scheduler) *SyncHandler {
	return &SyncHandler{queue: q, scheduler: sched}
}

// SetWebSocketHub sets the hub used for connectivity notifications.
func (h *SyncHandler) SetWebSocketHub(hub ConnectivityBroadcaster) {
	h.wsHub = hub
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// GetStatus handles GET /sync/status.
func (h *SyncHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := h.queue.Count()
	if err != nil {
		http.Error(w, "Failed to read queue", http.StatusInternalServerError)
		return
	}

	status := h.scheduler.GetStatus()
	response := map[string]interface{}{
		"running":           status.IsRunning,
		"online":            status.IsOnline,
		"drain_in_progress": status.DrainInProgress,
		"pending":           pending,
	}
	if status.LastDrainTime != nil {
		response["last_drain_at"] = status.LastDrainTime.Unix()
	}
	if status.LastResult != nil {
		response["last_result"] = status.LastResult
	}
	if telemetry.IsEnabled() {
		response["counters"] = telemetry.Get()
	}

	writeJSON(w, http.StatusOK, response)
}

// GetQueue handles GET /sync/queue. Returns pending entries oldest
// first, payloads included.
func (h *SyncHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	entries, err := h.queue.PeekBatch(100)
	if err != nil {
		http.Error(w, "Failed to read queue", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}

// GetDeadLetters handles GET /sync/dead-letters.
func (h *SyncHandler) GetDeadLetters(w http.ResponseWriter, r *http.Request) {
	entries, err := h.queue.DeadLettered()
	if err != nil {
		http.Error(w, "Failed to read dead letters", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}

// RetryDeadLetters handles POST /sync/dead-letters/retry.
func (h *SyncHandler) RetryDeadLetters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reset, err := h.queue.RetryDeadLettered()
	if err != nil {
		http.Error(w, "Failed to reset dead letters", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"reset": reset})
}

// DrainNow handles POST /sync/drain. Runs a drain cycle synchronously
// and returns the result.
func (h *SyncHandler) DrainNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := h.scheduler.DrainNow(r.Context())
	if err != nil {
		http.Error(w, "Drain failed", http.StatusInternalServerError)
		return
	}
	if result == nil {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"message": "drain already in progress",
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// SetNetwork handles POST /sync/network. Simulates the host platform's
// connectivity callback so offline scenarios can be driven by hand.
func (h *SyncHandler) SetNetwork(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		Online bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.scheduler.SetOnlineStatus(request.Online)
	if h.wsHub != nil {
		h.wsHub.BroadcastConnectivityChanged(request.Online)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"online": request.Online})
}
