// Package errors defines MAGNET's error taxonomy (spec §7): the six error
// kinds surfaced across validation, state, protocol, and geometry code.
// Every kind is carried by the one MagnetError struct, selected by its Kind
// field and holding a recovery hint, following the teacher's
// sentinel-error-plus-typed-wrapper convention.
package errors

import "errors"

// Sentinel errors for conditions with no extra context to carry.
var (
	ErrSourceMissing          = errors.New("source tag is empty")
	ErrTransactionAlreadyActive = errors.New("a transaction is already active")
	ErrNoActiveTransaction    = errors.New("no active transaction")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrCyclicDependency       = errors.New("cyclic dependency detected")
	ErrGraphNotBuilt          = errors.New("dependency graph has not been built")
	ErrValidatorAlreadyQueued = errors.New("validator already has a pending task")
)

// Kind enumerates the six MAGNET error kinds from spec §7.
type Kind string

const (
	KindValidationInput   Kind = "ValidationInput"
	KindPhysicsConstraint Kind = "PhysicsConstraint"
	KindState             Kind = "StateError"
	KindIntegration       Kind = "Integration"
	KindAgentProtocol     Kind = "AgentProtocol"
	KindGeometry          Kind = "Geometry"
)

// MagnetError is the common shape every taxonomy error implements.
type MagnetError struct {
	Kind         Kind
	Code         string
	Message      string
	RecoveryHint string
	Cause        error
}

func (e *MagnetError) Error() string {
	if e.Cause != nil {
		return string(e.Kind) + "[" + e.Code + "]: " + e.Message + ": " + e.Cause.Error()
	}
	return string(e.Kind) + "[" + e.Code + "]: " + e.Message
}

func (e *MagnetError) Unwrap() error { return e.Cause }

// New constructs a MagnetError.
func New(kind Kind, code, message, recoveryHint string) *MagnetError {
	return &MagnetError{Kind: kind, Code: code, Message: message, RecoveryHint: recoveryHint}
}

// Wrap constructs a MagnetError around an existing cause.
func Wrap(kind Kind, code, message, recoveryHint string, cause error) *MagnetError {
	return &MagnetError{Kind: kind, Code: code, Message: message, RecoveryHint: recoveryHint, Cause: cause}
}

// ValidationInput reports a missing or out-of-range input parameter.
func ValidationInput(code, path, message string) *MagnetError {
	return New(KindValidationInput, code, message,
		"supply a value for "+path+" within the documented range")
}

// StateErr reports an invariant violation in state/transaction/graph
// machinery. These are fatal to the current operation per spec §7.
func StateErr(code, message string, cause error) *MagnetError {
	return Wrap(KindState, code, message,
		"this indicates a programming error or a genuine invariant violation; do not retry silently", cause)
}

// AgentProtocolErr reports a cycle-executor protocol failure (timeout,
// malformed proposal).
func AgentProtocolErr(code, message string) *MagnetError {
	return New(KindAgentProtocol, code, message,
		"inspect the cycle history and resubmit a corrected proposal")
}

// GeometryErr reports an error from the glTF/GLB export path. Requested and
// Maximum carry LOD/resource-exhaustion context (spec §9 open question);
// both are zero when not applicable.
type GeometryErr struct {
	MagnetError
	Requested int
	Maximum   int
}

// GeometryCode enumerates the glTF/GLB failure reasons.
type GeometryCode string

const (
	GeometryUnavailable       GeometryCode = "unavailable"
	GeometryParameter         GeometryCode = "parameter"
	GeometryMeshGeneration    GeometryCode = "mesh_generation"
	GeometryLODExceeded       GeometryCode = "lod_exceeded"
	GeometryExport            GeometryCode = "export"
	GeometrySectionCut        GeometryCode = "section_cut"
	GeometryResourceExhausted GeometryCode = "resource_exhausted"
)

// NewGeometryError constructs a GeometryErr.
func NewGeometryError(code GeometryCode, message string, requested, maximum int) *GeometryErr {
	hint := "reduce mesh complexity or LOD and retry"
	if code == GeometryExport {
		hint = "fix the reported mesh contract violation before exporting"
	}
	return &GeometryErr{
		MagnetError: MagnetError{Kind: KindGeometry, Code: string(code), Message: message, RecoveryHint: hint},
		Requested:   requested,
		Maximum:     maximum,
	}
}

// ExportError is raised by pkg/gltf when a mesh violates its attribute
// contract. format is "gltf" or "glb"; reason names the violated gate.
type ExportError struct {
	GeometryErr
	Format string
	Reason string
}

// NewExportError constructs an ExportError carrying the mesh name and every
// accumulated contract violation in Message.
func NewExportError(format, reason, message string) *ExportError {
	return &ExportError{
		GeometryErr: *NewGeometryError(GeometryExport, message, 0, 0),
		Format:      format,
		Reason:      reason,
	}
}

// Envelope is the JSON error envelope from spec §6:
// {"error": {"code", "message", "details", "recovery_hint"}}.
type Envelope struct {
	Error EnvelopeBody `json:"error"`
}

// EnvelopeBody is the inner payload of Envelope.
type EnvelopeBody struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      string `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint"`
}

// ToEnvelope converts a MagnetError into its JSON error envelope.
func (e *MagnetError) ToEnvelope() Envelope {
	details := ""
	if e.Cause != nil {
		details = e.Cause.Error()
	}
	return Envelope{Error: EnvelopeBody{
		Code:         e.Code,
		Message:      e.Message,
		Details:      details,
		RecoveryHint: e.RecoveryHint,
	}}
}
