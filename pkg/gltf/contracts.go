// Package gltf is the single source of truth for glTF/GLB mesh
// construction (spec §4.10), ported idiom-for-idiom from
// original_source/magnet/webgl/{contracts,gltf_builder}.py: one exported
// writer method owns every byte that reaches the mesh buffer, eliminating
// the divergent-exporter bug the source documents as its worst regression.
package gltf

import (
	"fmt"

	magerrors "github.com/magnet-design/magnet-core/pkg/errors"
)

// MeshCategory is the closed set of mesh kinds, each with a canonical
// attribute policy.
type MeshCategory string

const (
	CategoryHull      MeshCategory = "hull"
	CategoryDeck      MeshCategory = "deck"
	CategoryStructure MeshCategory = "structure"
	CategoryLines     MeshCategory = "lines"
	CategoryPoints    MeshCategory = "points"
)

// Primitive mode constants, per the glTF 2.0 spec.
const (
	ModeTriangles  = 4
	ModeLineStrip  = 1
	ModePoints     = 0
)

// AttributePolicy declares which glTF attributes a mesh category requires.
// This is the single source of truth consulted by every export path; no
// export path may independently decide what attributes a mesh needs.
type AttributePolicy struct {
	Category       MeshCategory
	RequirePosition bool
	RequireNormal  bool
	RequireIndices bool
	ComputeBounds  bool
	PrimitiveMode  int
}

// PolicyFor returns the canonical policy for category.
func PolicyFor(category MeshCategory) AttributePolicy {
	switch category {
	case CategoryHull, CategoryDeck, CategoryStructure:
		return AttributePolicy{
			Category: category, RequirePosition: true, RequireNormal: true,
			RequireIndices: true, ComputeBounds: true, PrimitiveMode: ModeTriangles,
		}
	case CategoryLines:
		return AttributePolicy{
			Category: category, RequirePosition: true, RequireNormal: false,
			RequireIndices: false, ComputeBounds: true, PrimitiveMode: ModeLineStrip,
		}
	case CategoryPoints:
		return AttributePolicy{
			Category: category, RequirePosition: true, RequireNormal: false,
			RequireIndices: false, ComputeBounds: true, PrimitiveMode: ModePoints,
		}
	default:
		return AttributePolicy{Category: category, RequirePosition: true, PrimitiveMode: ModeTriangles}
	}
}

// PrimitiveRef is the set of accessor indices produced by writing one mesh
// primitive.
type PrimitiveRef struct {
	MeshIdx         int
	PrimitiveIdx    int
	PosAccessorIdx  int
	NormAccessorIdx *int
	IdxAccessorIdx  *int
}

// MeshData is the mesh payload handed to WriteMeshPrimitive. Vertices and
// Normals are flat float32 triples (x, y, z, x, y, z, ...); Indices are
// flat vertex indices.
type MeshData struct {
	MeshID  string
	Vertices []float32
	Indices  []uint32
	Normals  []float32
	UVs      []float32
	Colors   []float32
	Tangents []float32
}

// ValidateMesh checks mesh against policy and returns every violation
// found, per spec §4.10's "accumulate all errors" requirement. An empty
// slice means the mesh satisfies the contract.
//
// Diverges from the original Python validator on purpose: where the
// original only checks normals-length when normals happen to be present
// (tolerating a silently-absent NORMAL block), this validator treats a
// missing NORMAL as a violation whenever the policy requires one — the
// exact regression spec §4.10 calls out and exists to prevent.
func ValidateMesh(mesh MeshData, policy AttributePolicy, meshName string) []string {
	var errs []string

	if len(mesh.Vertices) == 0 {
		errs = append(errs, fmt.Sprintf("%s: POSITION vertices empty", meshName))
	} else if len(mesh.Vertices)%3 != 0 {
		errs = append(errs, fmt.Sprintf("%s: POSITION count %d not divisible by 3", meshName, len(mesh.Vertices)))
	}

	if policy.RequireNormal {
		if len(mesh.Normals) == 0 {
			errs = append(errs, fmt.Sprintf("%s: NORMAL required but missing", meshName))
		} else if len(mesh.Normals) != len(mesh.Vertices) {
			errs = append(errs, fmt.Sprintf("%s: NORMAL count %d != POSITION count %d", meshName, len(mesh.Normals), len(mesh.Vertices)))
		}
	}

	if policy.RequireIndices {
		if len(mesh.Indices) == 0 {
			errs = append(errs, fmt.Sprintf("%s: indices required but missing", meshName))
		} else if len(mesh.Indices)%3 != 0 {
			errs = append(errs, fmt.Sprintf("%s: indices count %d not divisible by 3", meshName, len(mesh.Indices)))
		} else if len(mesh.Vertices) > 0 {
			vertexCount := uint32(len(mesh.Vertices) / 3)
			var maxIdx uint32
			for _, idx := range mesh.Indices {
				if idx > maxIdx {
					maxIdx = idx
				}
			}
			if maxIdx >= vertexCount {
				errs = append(errs, fmt.Sprintf("%s: index %d >= vertex count %d", meshName, maxIdx, vertexCount))
			}
		}
	}

	return errs
}

// contractViolationError joins validation errors into the ExportError's
// message, matching the original's "fail loudly with mesh name and every
// violation" requirement.
func contractViolationError(meshName string, errs []string) *magerrors.ExportError {
	msg := meshName
	for _, e := range errs {
		msg += "; " + e
	}
	return magerrors.NewExportError("gltf", "mesh_contract_violation", msg)
}
