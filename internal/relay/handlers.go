package relay

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ShayCichocki/swarmville/internal/swarm"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageRequest struct {
	From    string `json:"from"`
	Content string `json:"content"`
}

type taskRequest struct {
	TaskID   string `json:"task_id"`
	TaskName string `json:"task_name"`
}

func (srv *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		srv.log.Warn("failed to encode response (status %d): %v", status, err)
	}
}

func (srv *Server) writeError(w http.ResponseWriter, status int, message string) {
	srv.writeJSON(w, status, errorResponse{Error: message})
}

// writeLookupError maps runtime errors onto HTTP statuses.
func (srv *Server) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, swarm.ErrAgentNotFound) {
		srv.writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	srv.writeError(w, http.StatusInternalServerError, err.Error())
}

func (srv *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	srv.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"subscribers": srv.bus.SubscriberCount(),
	})
}

func (srv *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	srv.writeJSON(w, http.StatusOK, srv.registry.Snapshots())
}

func (srv *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	snap, err := srv.registry.Snapshot(r.PathValue("id"))
	if err != nil {
		srv.writeLookupError(w, err)
		return
	}
	srv.writeJSON(w, http.StatusOK, snap)
}

func (srv *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		srv.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		srv.writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.From == "" {
		req.From = "user"
	}
	if err := srv.registry.SendMessage(r.PathValue("id"), req.From, req.Content); err != nil {
		srv.writeLookupError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (srv *Server) handleAssignTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		srv.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.TaskID == "" || req.TaskName == "" {
		srv.writeError(w, http.StatusBadRequest, "task_id and task_name are required")
		return
	}
	if err := srv.registry.AssignTask(r.PathValue("id"), req.TaskID, req.TaskName); err != nil {
		srv.writeLookupError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
