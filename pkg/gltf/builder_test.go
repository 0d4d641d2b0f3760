package gltf

import (
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cubeMesh() MeshData {
	return MeshData{
		MeshID:   "hull-01",
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:  []uint32{0, 1, 2},
	}
}

func TestWriteMeshPrimitiveRejectsPolicyViolation(t *testing.T) {
	b := NewBuilder(ExportMetadata{})
	mesh := MeshData{Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}} // no normals, no indices
	_, err := b.WriteMeshPrimitive(mesh, "hull-01", PolicyFor(CategoryHull))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NORMAL required but missing")
}

func TestWriteMeshPrimitiveAcceptsValidHull(t *testing.T) {
	b := NewBuilder(ExportMetadata{})
	ref, err := b.WriteMeshPrimitive(cubeMesh(), "hull-01", PolicyFor(CategoryHull))
	require.NoError(t, err)

	assert.Equal(t, 0, ref.MeshIdx)
	require.NotNil(t, ref.NormAccessorIdx)
	require.NotNil(t, ref.IdxAccessorIdx)
	assert.Equal(t, AttributeModeComplete, b.AttributeMode())
}

func TestWriteMeshPrimitiveLinesCategorySkipsNormalsAndIndices(t *testing.T) {
	b := NewBuilder(ExportMetadata{})
	mesh := MeshData{Vertices: []float32{0, 0, 0, 1, 1, 1}}
	ref, err := b.WriteMeshPrimitive(mesh, "waterline", PolicyFor(CategoryLines))
	require.NoError(t, err)
	assert.Nil(t, ref.NormAccessorIdx)
	assert.Nil(t, ref.IdxAccessorIdx)
}

func TestFinalizeGLBHasCorrectHeaderAndChunkFraming(t *testing.T) {
	b := NewBuilder(ExportMetadata{Generator: "test-gen"})
	_, err := b.WriteMeshPrimitive(cubeMesh(), "hull-01", PolicyFor(CategoryHull))
	require.NoError(t, err)

	out, err := b.Finalize(true)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(out), 28)
	assert.Equal(t, "glTF", string(out[0:4]))
	version := binary.LittleEndian.Uint32(out[4:8])
	assert.Equal(t, uint32(2), version)
	totalLength := binary.LittleEndian.Uint32(out[8:12])
	assert.Equal(t, uint32(len(out)), totalLength)

	jsonChunkLength := binary.LittleEndian.Uint32(out[12:16])
	jsonChunkType := binary.LittleEndian.Uint32(out[16:20])
	assert.Equal(t, uint32(0x4E4F534A), jsonChunkType)

	jsonStart := 20
	jsonEnd := jsonStart + int(jsonChunkLength)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(out[jsonStart:jsonEnd], &doc))
	assert.Equal(t, "2.0", doc["asset"].(map[string]any)["version"])

	binChunkLength := binary.LittleEndian.Uint32(out[jsonEnd : jsonEnd+4])
	binChunkType := binary.LittleEndian.Uint32(out[jsonEnd+4 : jsonEnd+8])
	assert.Equal(t, uint32(0x004E4942), binChunkType)
	assert.Equal(t, int(binChunkLength), len(out)-(jsonEnd+8))
}

func TestFinalizeGLTFJSONEmbedsBase64Buffer(t *testing.T) {
	b := NewBuilder(ExportMetadata{})
	_, err := b.WriteMeshPrimitive(cubeMesh(), "hull-01", PolicyFor(CategoryHull))
	require.NoError(t, err)

	out, err := b.Finalize(false)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	buffers := doc["buffers"].([]any)
	require.Len(t, buffers, 1)
	uri := buffers[0].(map[string]any)["uri"].(string)
	assert.Contains(t, uri, "data:application/octet-stream;base64,")
}

func TestAddMaterialsAssignsBaseColorFromHex(t *testing.T) {
	b := NewBuilder(ExportMetadata{})
	meshRef, err := b.WriteMeshPrimitive(cubeMesh(), "hull-01", PolicyFor(CategoryHull))
	require.NoError(t, err)

	b.AddMaterials([]MaterialDef{{Name: "steel", ColorHex: "#336699", Opacity: 1.0, Metalness: 0.8, Roughness: 0.3}})
	b.SetPrimitiveMaterial(meshRef.MeshIdx, 0)

	out, err := b.Finalize(false)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	materials := doc["materials"].([]any)
	require.Len(t, materials, 1)
	pbr := materials[0].(map[string]any)["pbrMetallicRoughness"].(map[string]any)
	baseColor := pbr["baseColorFactor"].([]any)
	assert.InDelta(t, 0x33, baseColor[0].(float64)*255, 1.0)
}

func TestAddMaterialsFallsBackToGrayOnBadHex(t *testing.T) {
	b := NewBuilder(ExportMetadata{})
	b.AddMaterials([]MaterialDef{{Name: "unknown", ColorHex: "not-a-color", Opacity: 1.0}})
	out, err := b.Finalize(false)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	pbr := doc["materials"].([]any)[0].(map[string]any)["pbrMetallicRoughness"].(map[string]any)
	baseColor := pbr["baseColorFactor"].([]any)
	assert.InDelta(t, 0.7, baseColor[0], 0.001)
}

func TestValidateMeshAccumulatesAllViolations(t *testing.T) {
	mesh := MeshData{Vertices: []float32{0, 0}, Indices: []uint32{0, 1}}
	errs := ValidateMesh(mesh, PolicyFor(CategoryHull), "broken")
	assert.GreaterOrEqual(t, len(errs), 3)
}

func TestValidateMeshRejectsIndexOutOfBounds(t *testing.T) {
	mesh := MeshData{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:  []uint32{0, 1, 9},
	}
	errs := ValidateMesh(mesh, PolicyFor(CategoryHull), "oob")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "index 9 >= vertex count 3")
}
