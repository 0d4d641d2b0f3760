// Package protocol implements the propose-validate-revise cycle executor
// (spec §4.8) and the escalation handler (§4.9), the control loop that
// drives an agent's proposal through a validator pipeline with tentative
// writes, commit, rollback, and escalation. The iterative loop shape is
// the teacher's InternalRetryPolicy.Execute bounded retry loop
// (pkg/engine/retry_policy.go), generalized to drive
// APPROVE/REVISE/ESCALATE/ABORT transitions instead of a uniform retry.
package protocol

import (
	"time"

	"github.com/magnet-design/magnet-core/pkg/depgraph"
	"github.com/magnet-design/magnet-core/pkg/value"
)

// ProposalStatus is the lifecycle of a Proposal.
type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "PENDING"
	ProposalValidating ProposalStatus = "VALIDATING"
	ProposalApproved  ProposalStatus = "APPROVED"
	ProposalRejected  ProposalStatus = "REJECTED"
	ProposalRevised   ProposalStatus = "REVISED"
	ProposalEscalated ProposalStatus = "ESCALATED"
)

// ParameterChange is one proposed write within a Proposal.
type ParameterChange struct {
	Path      string
	Old       value.Value
	New       value.Value
	Unit      string
	Reasoning string
	Confidence float64
	Source    string
}

// Proposal is one candidate set of writes an agent wants to apply.
type Proposal struct {
	ProposalID string
	AgentID    string
	Phase      depgraph.Phase
	Iteration  int
	ParentID   string
	Changes    []ParameterChange
	Status     ProposalStatus
	Reasoning  string
	Confidence float64
}

// Severity is a validation finding's severity.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Finding is one issue raised by a validator.
type Finding struct {
	ValidatorName string
	Severity      Severity
	Code          string
	Message       string
	Path          string
	ActualValue   *value.Value
	ExpectedValue *value.Value
	Suggestion    string
}

// ValidationRequest is handed to the injected validator function.
type ValidationRequest struct {
	Proposal   Proposal
	Phase      depgraph.Phase
	StrictMode bool
}

// ValidationResult is the validator function's response.
type ValidationResult struct {
	RequestID    string
	ProposalID   string
	Passed       bool
	Findings     []Finding
	ValidatorsRun []string
	DurationMS   int64
	ErrorCount   int
	WarningCount int
}

// DecisionKind is what an agent (or the auto-decision policy) decided.
type DecisionKind string

const (
	DecisionApprove  DecisionKind = "APPROVE"
	DecisionRevise   DecisionKind = "REVISE"
	DecisionEscalate DecisionKind = "ESCALATE"
	DecisionAbort    DecisionKind = "ABORT"
)

// AgentDecision is the outcome of one validate-then-decide step.
type AgentDecision struct {
	ProposalID        string
	Decision          DecisionKind
	Reasoning         string
	Confidence        float64
	RevisionChanges   []ParameterChange
	EscalationReason  string
}

// IterationRecord is one entry in a CycleResult's history: one pass/fail
// outcome per loop iteration.
type IterationRecord struct {
	Iteration    int
	ProposalID   string
	Passed       bool
	ErrorCount   int
	WarningCount int
	Decision     DecisionKind
}

// CycleResult is what CycleExecutor.Run returns.
type CycleResult struct {
	CycleID          string
	FinalProposal    Proposal
	FinalResult      ValidationResult
	Iterations       int
	TotalDurationMS  int64
	Success          bool
	Committed        bool
	Escalated        bool
	EscalationReason string
	History          []IterationRecord
}

// EscalationLevel is the severity bucket an escalation is routed by.
type EscalationLevel string

const (
	EscalationInfo     EscalationLevel = "INFO"
	EscalationLow      EscalationLevel = "LOW"
	EscalationMedium   EscalationLevel = "MEDIUM"
	EscalationHigh     EscalationLevel = "HIGH"
	EscalationCritical EscalationLevel = "CRITICAL"
)

// EscalationStatus is the lifecycle of an EscalationRequest.
type EscalationStatus string

const (
	EscalationOpen       EscalationStatus = "OPEN"
	EscalationInProgress EscalationStatus = "IN_PROGRESS"
	EscalationResolved   EscalationStatus = "RESOLVED"
	EscalationDeferred   EscalationStatus = "DEFERRED"
	EscalationDismissed  EscalationStatus = "DISMISSED"
)

// EscalationRequest is raised when a cycle exhausts its iterations or the
// auto-decision policy calls for ESCALATE.
type EscalationRequest struct {
	EscalationID       string
	ProposalID         string
	AgentID            string
	Phase              depgraph.Phase
	Level              EscalationLevel
	Status             EscalationStatus
	RuleID             string
	Findings           []Finding
	IterationsAttempted int
	ResolutionNotes    string
	CreatedAt          time.Time
}

// EscalationResponse is what a registered escalation callback returns.
type EscalationResponse struct {
	Action            string // "resolved" | "deferred" | "dismissed" | "forwarded"
	Resolution        string
	SuggestedChanges  []ParameterChange
}

// levelFromErrorCount derives an EscalationLevel per spec §4.9: >=5 errors
// is HIGH, >=2 is MEDIUM, otherwise LOW.
func levelFromErrorCount(errorCount int) EscalationLevel {
	switch {
	case errorCount >= 5:
		return EscalationHigh
	case errorCount >= 2:
		return EscalationMedium
	default:
		return EscalationLow
	}
}
