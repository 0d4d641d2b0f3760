package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMagnetErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindState, "TXN_ACTIVE", "transaction already active", "commit or rollback first", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")
}

func TestExportErrorCarriesFormatAndReason(t *testing.T) {
	err := NewExportError("glb", "mesh_contract_violation", "hull: NORMAL required but missing")
	assert.Equal(t, "glb", err.Format)
	assert.Equal(t, "mesh_contract_violation", err.Reason)
	assert.Equal(t, KindGeometry, err.Kind)
}

func TestToEnvelope(t *testing.T) {
	err := ValidationInput("HULL_LWL_RANGE", "hull.lwl", "lwl out of range")
	env := err.ToEnvelope()
	assert.Equal(t, "HULL_LWL_RANGE", env.Error.Code)
	assert.NotEmpty(t, env.Error.RecoveryHint)
}
