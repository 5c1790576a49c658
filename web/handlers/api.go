// Package handlers provides the HTTP handlers and middleware for the Reverie
// JSON API.
package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/reveriehq/reverie/internal/engine"
	"github.com/reveriehq/reverie/internal/storage"
	"github.com/reveriehq/reverie/pkg/types"
)

// MemoryEngine is the slice of the engine the API surface needs.
// Satisfied by *engine.Engine.
type MemoryEngine interface {
	Enqueue(task types.ExtractionTask) string
	Recall(ctx context.Context, userID, message string, opts engine.RecallOptions) []storage.ScoredMemory
	Status() types.QueueStatus
	Mood() *engine.MoodTracker
}

// APIHandlers serves the JSON API over the memory engine.
type APIHandlers struct {
	engine MemoryEngine
}

// NewAPIHandlers creates the API handler set.
func NewAPIHandlers(eng MemoryEngine) *APIHandlers {
	return &APIHandlers{engine: eng}
}

// PostTurn handles POST /api/turns - accepts one conversational exchange and
// queues it for background extraction. Always 202: extraction happens off the
// request path and its outcome never blocks a chat turn.
func (h *APIHandlers) PostTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}
	if strings.TrimSpace(req.UserMessage) == "" && strings.TrimSpace(req.AssistantReply) == "" {
		respondError(w, http.StatusBadRequest, "user_message or assistant_reply is required", nil)
		return
	}

	taskID := h.engine.Enqueue(types.ExtractionTask{
		UserID:            req.UserID,
		UserMessage:       req.UserMessage,
		AssistantReply:    req.AssistantReply,
		RelationshipLevel: req.RelationshipLevel,
		Mood:              req.Mood,
		Tags:              req.Tags,
	})

	respondJSON(w, http.StatusAccepted, TurnResponse{TaskID: taskID, Status: "queued"})
}

// PostRecall handles POST /api/recall - returns the memories most relevant to
// a message, ranked for prompt injection. An empty list is a normal answer,
// not an error.
func (h *APIHandlers) PostRecall(w http.ResponseWriter, r *http.Request) {
	var req RecallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "message is required", nil)
		return
	}

	results := h.engine.Recall(r.Context(), req.UserID, req.Message, engine.RecallOptions{
		Limit:         req.Limit,
		MinImportance: req.MinImportance,
	})

	memories := make([]RecalledMemory, len(results))
	for i, res := range results {
		memories[i] = RecalledMemory{
			Content:    res.Memory.Content,
			MemoryType: string(res.Memory.MemoryType),
			Importance: res.Memory.Importance,
			Similarity: res.Similarity,
		}
	}
	respondJSON(w, http.StatusOK, RecallResponse{Memories: memories, Count: len(memories)})
}

// GetQueue handles GET /api/queue - returns a snapshot of the extraction
// queue and its lifetime counters.
func (h *APIHandlers) GetQueue(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Status())
}

// GetMood handles GET /api/mood - returns the current mood state for
// response styling.
func (h *APIHandlers) GetMood(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Mood().Snapshot())
}

// Health handles GET /api/healthz.
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent; nothing left to do but log.
		log.Printf("ERROR: handlers: failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	resp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}
	if err != nil {
		resp.Details = map[string]interface{}{"error": err.Error()}
	}
	respondJSON(w, statusCode, resp)
}
