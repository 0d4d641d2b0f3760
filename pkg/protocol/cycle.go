package protocol

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	magerrors "github.com/magnet-design/magnet-core/pkg/errors"
	"github.com/magnet-design/magnet-core/pkg/state"
	"github.com/magnet-design/magnet-core/pkg/value"
)

// value0 dereferences a possibly-nil *value.Value, defaulting to Null.
func value0(v *value.Value) value.Value {
	if v == nil {
		return value.Null()
	}
	return *v
}

// ValidatorFn is the injected validator pipeline: an opaque
// (request) -> result function, per spec §1's "core consumes validators as
// opaque functions" boundary.
type ValidatorFn func(ctx context.Context, req ValidationRequest) (ValidationResult, error)

// DeciderFn is an optional injected decision-maker. When nil, Config's
// auto-decision policy (spec §4.8.2.d) runs instead.
type DeciderFn func(ctx context.Context, proposal Proposal, result ValidationResult) (AgentDecision, error)

// Config holds the cycle executor's tunables.
type Config struct {
	MaxIterations     int
	TimeoutSeconds    int
	StrictMode        bool
	AutoCommit        bool
	UseTransactions   bool
	RollbackOnFailure bool
}

// DefaultConfig returns spec §4.8's documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations:     5,
		TimeoutSeconds:    30,
		AutoCommit:        true,
		UseTransactions:   true,
		RollbackOnFailure: true,
	}
}

// SnapshotSaver durably records the store snapshot taken at the start of a
// transaction, keyed by transaction ID, so a crashed process can recover the
// pre-transaction state of an in-flight cycle. Satisfied by
// internal/persistence.SnapshotRepository; nil (the default) disables
// persistence and keeps the snapshot in memory only, via state.TxManager.
type SnapshotSaver interface {
	Save(ctx context.Context, transactionID, proposalID string, snap state.Snapshot) error
}

// CycleExecutor runs the propose-validate-revise state machine.
type CycleExecutor struct {
	store     *state.Store
	txManager *state.TxManager
	validator ValidatorFn
	decider   DeciderFn
	config    Config
	snapshots SnapshotSaver
}

// NewCycleExecutor constructs a CycleExecutor. decider may be nil to use
// the auto-decision policy.
func NewCycleExecutor(store *state.Store, txManager *state.TxManager, validator ValidatorFn, decider DeciderFn, config Config) *CycleExecutor {
	if config.MaxIterations <= 0 {
		config.MaxIterations = 5
	}
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = 30
	}
	return &CycleExecutor{store: store, txManager: txManager, validator: validator, decider: decider, config: config}
}

// SetSnapshotSaver wires durable snapshot persistence into the executor.
// Called by the composition root once the backing store is known; omitting
// it keeps every transaction's snapshot in memory only.
func (c *CycleExecutor) SetSnapshotSaver(s SnapshotSaver) {
	c.snapshots = s
}

// Run drives initial through the propose-validate-revise loop until it is
// approved, rejected, escalated, or the iteration/timeout budget is
// exhausted. It is iterative, never recursive, per the design's
// single-depth execution requirement.
func (c *CycleExecutor) Run(ctx context.Context, initial Proposal) (CycleResult, error) {
	cycleID := uuid.NewString()
	startedAt := time.Now()
	deadline := startedAt.Add(time.Duration(c.config.TimeoutSeconds) * time.Second)

	current := initial
	var history []IterationRecord
	var finalResult ValidationResult
	var txnID string

	// Every non-APPROVE exit path (return, timeout, decision-driven break)
	// passes through this single guard instead of a bare defer, since a
	// successful Commit must not also be rolled back afterward.
	rollbackIfActive := func() {
		if c.config.UseTransactions && c.txManager.IsActive() {
			_ = c.txManager.Rollback(txnID)
		}
	}
	defer rollbackIfActive()

	for iteration := 1; iteration <= c.config.MaxIterations; iteration++ {
		current.Iteration = iteration

		if time.Now().After(deadline) {
			rollbackIfActive()
			return c.finish(cycleID, current, finalResult, iteration-1, startedAt, history, false, "TIMEOUT"), nil
		}

		if c.config.UseTransactions {
			id, err := c.txManager.Begin("protocol/cycle_executor",
				"cycle "+cycleID+" iteration "+strconv.Itoa(iteration), state.ReadCommitted)
			if err != nil {
				return CycleResult{}, magerrors.AgentProtocolErr("CYCLE_BEGIN_FAILED", err.Error())
			}
			txnID = id

			if c.snapshots != nil {
				_ = c.snapshots.Save(ctx, txnID, current.ProposalID, c.store.Snapshot())
			}
		}

		current.Status = ProposalValidating
		for _, ch := range current.Changes {
			source := ch.Source
			if source == "" {
				source = "protocol/cycle_executor"
			}
			if err := c.store.Set(ch.Path, ch.New, source); err != nil {
				if c.config.RollbackOnFailure {
					rollbackIfActive()
				}
				return CycleResult{}, magerrors.Wrap(magerrors.KindAgentProtocol, "CYCLE_APPLY_FAILED",
					"failed to apply proposal changes for cycle "+cycleID, "inspect the proposal's changes for an invalid path", err)
			}
		}

		req := ValidationRequest{Proposal: current, Phase: current.Phase, StrictMode: c.config.StrictMode}
		result, err := c.validator(ctx, req)
		if err != nil {
			if c.config.RollbackOnFailure {
				rollbackIfActive()
			}
			return CycleResult{}, magerrors.Wrap(magerrors.KindAgentProtocol, "CYCLE_VALIDATION_FAILED",
				"validator function returned an error for cycle "+cycleID, "inspect the injected validator for a bug", err)
		}
		finalResult = result

		decision, err := c.decide(ctx, current, result)
		if err != nil {
			if c.config.RollbackOnFailure {
				rollbackIfActive()
			}
			return CycleResult{}, magerrors.Wrap(magerrors.KindAgentProtocol, "CYCLE_DECISION_FAILED",
				"decider function returned an error for cycle "+cycleID, "inspect the injected decider for a bug", err)
		}

		history = append(history, IterationRecord{
			Iteration:    iteration,
			ProposalID:   current.ProposalID,
			Passed:       result.Passed,
			ErrorCount:   result.ErrorCount,
			WarningCount: result.WarningCount,
			Decision:     decision.Decision,
		})

		switch decision.Decision {
		case DecisionApprove:
			current.Status = ProposalApproved
			if c.config.UseTransactions {
				if err := c.txManager.Commit(txnID); err != nil {
					return CycleResult{}, magerrors.Wrap(magerrors.KindAgentProtocol, "CYCLE_COMMIT_FAILED",
						"failed to commit cycle "+cycleID, "inspect the transaction manager state", err)
				}
			}
			return c.finish(cycleID, current, finalResult, iteration, startedAt, history, true, ""), nil

		case DecisionRevise:
			rollbackIfActive()
			current = Proposal{
				ProposalID: uuid.NewString(),
				AgentID:    current.AgentID,
				Phase:      current.Phase,
				Iteration:  iteration + 1,
				ParentID:   current.ProposalID,
				Changes:    decision.RevisionChanges,
				Status:     ProposalRevised,
				Reasoning:  decision.Reasoning,
				Confidence: decision.Confidence,
			}
			continue

		case DecisionEscalate:
			rollbackIfActive()
			current.Status = ProposalEscalated
			return c.finish(cycleID, current, finalResult, iteration, startedAt, history, false, decision.EscalationReason), nil

		case DecisionAbort:
			rollbackIfActive()
			current.Status = ProposalRejected
			return c.finish(cycleID, current, finalResult, iteration, startedAt, history, false, ""), nil
		}
	}

	rollbackIfActive()
	reason := "Max iterations (" + strconv.Itoa(c.config.MaxIterations) + ") reached"
	return c.finish(cycleID, current, finalResult, c.config.MaxIterations, startedAt, history, false, reason), nil
}

func (c *CycleExecutor) decide(ctx context.Context, proposal Proposal, result ValidationResult) (AgentDecision, error) {
	if c.decider != nil {
		return c.decider(ctx, proposal, result)
	}
	return autoDecide(proposal, result), nil
}

// finish assembles a CycleResult. escalationReason non-empty implies
// Escalated=true even when success is true's complement already implies it;
// an empty reason with success=false means REJECT/ABORT, not escalation.
func (c *CycleExecutor) finish(cycleID string, final Proposal, result ValidationResult, iterations int, startedAt time.Time, history []IterationRecord, success bool, escalationReason string) CycleResult {
	return CycleResult{
		CycleID:          cycleID,
		FinalProposal:    final,
		FinalResult:      result,
		Iterations:       iterations,
		TotalDurationMS:  time.Since(startedAt).Milliseconds(),
		Success:          success,
		Committed:        success && c.config.UseTransactions && c.config.AutoCommit,
		Escalated:        escalationReason != "",
		EscalationReason: escalationReason,
		History:          history,
	}
}

// autoDecide implements spec §4.8.2.d's auto-decision policy, used whenever
// no DeciderFn is injected. Mirrors the original's _auto_decision: a finding
// is a candidate suggestion purely by having a non-empty Suggestion (not by
// severity); it only becomes a ParameterChange once it also carries a Path
// and ExpectedValue (original's _suggestions_to_changes).
func autoDecide(proposal Proposal, result ValidationResult) AgentDecision {
	if result.Passed {
		return AgentDecision{ProposalID: proposal.ProposalID, Decision: DecisionApprove, Reasoning: "validation passed", Confidence: 0.9}
	}

	if result.ErrorCount > 0 {
		var suggestions []Finding
		for _, f := range result.Findings {
			if f.Suggestion != "" {
				suggestions = append(suggestions, f)
			}
		}

		if len(suggestions) > 0 {
			var changes []ParameterChange
			for _, f := range suggestions {
				if f.Path == "" || f.ExpectedValue == nil {
					continue
				}
				changes = append(changes, ParameterChange{
					Path:      f.Path,
					Old:       value0(f.ActualValue),
					New:       *f.ExpectedValue,
					Reasoning: "suggested by " + f.ValidatorName + ": " + f.Suggestion,
					Source:    "validator:" + f.ValidatorName,
				})
			}
			return AgentDecision{
				ProposalID:      proposal.ProposalID,
				Decision:        DecisionRevise,
				Reasoning:       fmt.Sprintf("attempting revision based on %d suggestions", len(suggestions)),
				RevisionChanges: changes,
				Confidence:      0.6,
			}
		}

		return AgentDecision{
			ProposalID:       proposal.ProposalID,
			Decision:         DecisionEscalate,
			EscalationReason: fmt.Sprintf("Validation failed with %d errors, no revision suggestions", result.ErrorCount),
			Confidence:       0.7,
		}
	}

	return AgentDecision{
		ProposalID: proposal.ProposalID,
		Decision:   DecisionApprove,
		Reasoning:  fmt.Sprintf("validation passed with %d warnings", result.WarningCount),
		Confidence: 0.8,
	}
}
