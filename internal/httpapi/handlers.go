package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/magnet-design/magnet-core/internal/runtime"
	"github.com/magnet-design/magnet-core/pkg/protocol"
	"github.com/magnet-design/magnet-core/pkg/triggerlog"
	"github.com/magnet-design/magnet-core/pkg/value"
)

type handlers struct {
	rt *runtime.Runtime
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rt.Store.ToDict())
}

// proposalRequest is the wire shape for POST /v1/proposals: a flat set of
// parameter-path -> new-value writes, matching how a calling agent proposes
// a design change (spec §4.8).
type proposalRequest struct {
	AgentID string         `json:"agent_id"`
	Changes map[string]any `json:"changes"`
}

func (h *handlers) submitProposal(w http.ResponseWriter, r *http.Request) {
	var req proposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Changes) == 0 {
		writeError(w, http.StatusBadRequest, "changes must not be empty")
		return
	}

	changes := make([]protocol.ParameterChange, 0, len(req.Changes))
	for path, raw := range req.Changes {
		newVal, err := value.FromAny(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid value for "+path+": "+err.Error())
			return
		}
		changes = append(changes, protocol.ParameterChange{
			Path:   path,
			Old:    h.rt.Store.Get(path, value.Null()),
			New:    newVal,
			Source: req.AgentID,
		})
	}

	proposal := protocol.Proposal{
		ProposalID: uuid.NewString(),
		AgentID:    req.AgentID,
		Changes:    changes,
		Status:     protocol.ProposalPending,
	}

	result, err := h.rt.Cycles.Run(r.Context(), proposal)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if result.Committed {
		paths := make([]string, 0, len(changes))
		for _, c := range changes {
			paths = append(paths, c.Path)
		}
		if _, err := h.rt.RecomputeDownstream(r.Context(), paths); err != nil {
			h.rt.Logger.ErrorContext(r.Context(), "cascade recompute failed", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) listTriggers(w http.ResponseWriter, r *http.Request) {
	entries := h.rt.TriggerLog.Query(triggerlog.Filter{})
	writeJSON(w, http.StatusOK, entries)
}

func (h *handlers) dependents(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	writeJSON(w, http.StatusOK, map[string]any{
		"path":       path,
		"dependents": h.rt.Graph.DirectDependents(path),
	})
}
