package protocol

import (
	"time"

	"github.com/google/uuid"

	"github.com/magnet-design/magnet-core/pkg/depgraph"
)

// EscalationCallback handles an EscalationRequest and reports what happened
// to it.
type EscalationCallback func(EscalationRequest) EscalationResponse

// escalationKey is a registry key with wildcard axes: either Level or
// Phase (or both) may be "*".
type escalationKey struct {
	level EscalationLevel
	phase depgraph.Phase
}

const wildcardLevel = EscalationLevel("*")
const wildcardPhase = depgraph.Phase("*")

// EscalationHandler routes unresolved cycles to a registered callback,
// keyed by (level, phase) with "*" wildcards on either axis. Lookup order
// mirrors the teacher's auth ProviderManager priority lookup
// (internal/application/auth/provider_manager.go: try the named provider,
// then fall back to a default), generalized here from a single name axis
// to two.
type EscalationHandler struct {
	callbacks map[escalationKey]EscalationCallback
}

// NewEscalationHandler constructs an empty handler.
func NewEscalationHandler() *EscalationHandler {
	return &EscalationHandler{callbacks: map[escalationKey]EscalationCallback{}}
}

// Register binds cb to (level, phase). Pass "" for level or phase to
// register a wildcard on that axis.
func (h *EscalationHandler) Register(level EscalationLevel, phase depgraph.Phase, cb EscalationCallback) {
	if level == "" {
		level = wildcardLevel
	}
	if phase == "" {
		phase = wildcardPhase
	}
	h.callbacks[escalationKey{level: level, phase: phase}] = cb
}

// RegisterDefault binds the catch-all callback used when no other entry
// matches.
func (h *EscalationHandler) RegisterDefault(cb EscalationCallback) {
	h.Register(wildcardLevel, wildcardPhase, cb)
}

// lookup resolves a callback for (level, phase): specific-both, then
// level-only, then phase-only, then default.
func (h *EscalationHandler) lookup(level EscalationLevel, phase depgraph.Phase) (EscalationCallback, bool) {
	if cb, ok := h.callbacks[escalationKey{level: level, phase: phase}]; ok {
		return cb, true
	}
	if cb, ok := h.callbacks[escalationKey{level: level, phase: wildcardPhase}]; ok {
		return cb, true
	}
	if cb, ok := h.callbacks[escalationKey{level: wildcardLevel, phase: phase}]; ok {
		return cb, true
	}
	if cb, ok := h.callbacks[escalationKey{level: wildcardLevel, phase: wildcardPhase}]; ok {
		return cb, true
	}
	return nil, false
}

// NewEscalationFromCycle derives an EscalationRequest from a cycle's final
// state, deriving Level from the final validation result's error count per
// spec §4.9.
func NewEscalationFromCycle(result CycleResult, ruleID string) EscalationRequest {
	return EscalationRequest{
		EscalationID:        uuid.NewString(),
		ProposalID:          result.FinalProposal.ProposalID,
		AgentID:             result.FinalProposal.AgentID,
		Phase:               result.FinalProposal.Phase,
		Level:               levelFromErrorCount(result.FinalResult.ErrorCount),
		Status:              EscalationOpen,
		RuleID:              ruleID,
		Findings:            result.FinalResult.Findings,
		IterationsAttempted: result.Iterations,
		CreatedAt:           time.Now().UTC(),
	}
}

// Handle looks up a callback for req.Level/req.Phase and applies its
// response, mutating req's status and resolution notes. Returns false if
// no callback (not even a default) is registered.
func (h *EscalationHandler) Handle(req *EscalationRequest) (EscalationResponse, bool) {
	cb, ok := h.lookup(req.Level, req.Phase)
	if !ok {
		return EscalationResponse{}, false
	}
	resp := cb(*req)
	applyResponse(req, resp)
	return resp, true
}

func applyResponse(req *EscalationRequest, resp EscalationResponse) {
	req.ResolutionNotes = resp.Resolution
	switch resp.Action {
	case "resolved":
		req.Status = EscalationResolved
	case "deferred":
		req.Status = EscalationDeferred
	case "dismissed":
		req.Status = EscalationDismissed
	case "forwarded":
		req.Status = EscalationInProgress
	}
}
