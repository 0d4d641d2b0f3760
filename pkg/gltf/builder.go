package gltf

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"strconv"
)

// AttributeMode reports whether every mesh written so far carries the
// attributes its policy requires.
type AttributeMode string

const (
	AttributeModeComplete       AttributeMode = "COMPLETE"
	AttributeModeMissingNormals AttributeMode = "MISSING_NORMALS"
)

// Builder is the single source of truth for glTF/GLB construction.
//
// INVARIANT: every byte of mesh data reaches the buffer exclusively through
// WriteMeshPrimitive. No other method may append vertex, normal, or index
// data — this is what eliminates the divergent-exporter bug (a second
// export path silently omitting normals) the original source documents as
// its worst regression.
type Builder struct {
	buf           bytes.Buffer
	doc           document
	attributeMode AttributeMode
}

// NewBuilder constructs a Builder with an empty glTF document shell.
func NewBuilder(metadata ExportMetadata) *Builder {
	generator := metadata.Generator
	if generator == "" {
		generator = "MAGNET v1.2"
	}
	return &Builder{
		doc: document{
			Asset:  assetDef{Version: "2.0", Generator: generator, Extras: metadata.Extras},
			Scene:  0,
			Scenes: []sceneDef{{Nodes: []int{}}},
		},
		attributeMode: AttributeModeComplete,
	}
}

// AttributeMode reports whether a written mesh has been missing a
// policy-required NORMAL block (which, post-contract-fix, should never
// happen — ValidateMesh rejects it before any bytes are written).
func (b *Builder) AttributeMode() AttributeMode { return b.attributeMode }

func (b *Builder) align(alignment int) {
	current := b.buf.Len()
	padding := (alignment - current%alignment) % alignment
	if padding > 0 {
		b.buf.Write(make([]byte, padding))
	}
}

// WriteMeshPrimitive validates mesh against policy and, if it passes,
// writes POSITION (always), NORMAL (if policy requires and mesh has any),
// and indices (if policy requires) to the buffer, then registers the
// corresponding bufferView/accessor/primitive/mesh/node/scene entries.
//
// This is THE ONLY method that writes mesh bytes to the buffer.
func (b *Builder) WriteMeshPrimitive(mesh MeshData, name string, policy AttributePolicy) (PrimitiveRef, error) {
	if errs := ValidateMesh(mesh, policy, name); len(errs) > 0 {
		return PrimitiveRef{}, contractViolationError(name, errs)
	}

	b.align(4)
	posOffset := b.buf.Len()
	minPos, maxPos := b.writePositions(mesh.Vertices)
	posLength := b.buf.Len() - posOffset

	var normOffset *int
	var normLength int
	if policy.RequireNormal && len(mesh.Normals) > 0 {
		b.align(4)
		off := b.buf.Len()
		b.writeFloats(mesh.Normals)
		normLength = b.buf.Len() - off
		normOffset = &off
	} else if policy.RequireNormal {
		b.attributeMode = AttributeModeMissingNormals
	}

	var idxOffset *int
	var idxLength int
	if policy.RequireIndices && len(mesh.Indices) > 0 {
		b.align(4)
		off := b.buf.Len()
		b.writeIndices(mesh.Indices)
		idxLength = b.buf.Len() - off
		idxOffset = &off
	}

	posBVIdx := len(b.doc.BufferViews)
	b.doc.BufferViews = append(b.doc.BufferViews, bufferViewDef{
		Buffer: 0, ByteOffset: posOffset, ByteLength: posLength, Target: TargetArrayBuffer,
	})
	posAccIdx := len(b.doc.Accessors)
	b.doc.Accessors = append(b.doc.Accessors, accessorDef{
		BufferView: posBVIdx, ComponentType: ComponentTypeFloat,
		Count: len(mesh.Vertices) / 3, Type: "VEC3",
		Min: minPos[:], Max: maxPos[:],
	})

	var normAccIdx *int
	if normOffset != nil {
		bvIdx := len(b.doc.BufferViews)
		b.doc.BufferViews = append(b.doc.BufferViews, bufferViewDef{
			Buffer: 0, ByteOffset: *normOffset, ByteLength: normLength, Target: TargetArrayBuffer,
		})
		accIdx := len(b.doc.Accessors)
		b.doc.Accessors = append(b.doc.Accessors, accessorDef{
			BufferView: bvIdx, ComponentType: ComponentTypeFloat,
			Count: len(mesh.Normals) / 3, Type: "VEC3",
		})
		normAccIdx = &accIdx
	}

	var idxAccIdx *int
	if idxOffset != nil {
		bvIdx := len(b.doc.BufferViews)
		b.doc.BufferViews = append(b.doc.BufferViews, bufferViewDef{
			Buffer: 0, ByteOffset: *idxOffset, ByteLength: idxLength, Target: TargetElementArrayBuffer,
		})
		accIdx := len(b.doc.Accessors)
		b.doc.Accessors = append(b.doc.Accessors, accessorDef{
			BufferView: bvIdx, ComponentType: ComponentTypeUnsignedInt,
			Count: len(mesh.Indices), Type: "SCALAR",
		})
		idxAccIdx = &accIdx
	}

	primitive := primitiveDef{
		Attributes: map[string]int{"POSITION": posAccIdx},
		Mode:       policy.PrimitiveMode,
	}
	if normAccIdx != nil {
		primitive.Attributes["NORMAL"] = *normAccIdx
	}
	if idxAccIdx != nil {
		primitive.Indices = idxAccIdx
	}

	meshIdx := len(b.doc.Meshes)
	b.doc.Meshes = append(b.doc.Meshes, meshDef{Primitives: []primitiveDef{primitive}, Name: name})
	b.doc.Nodes = append(b.doc.Nodes, nodeDef{Mesh: meshIdx, Name: name})
	b.doc.Scenes[0].Nodes = append(b.doc.Scenes[0].Nodes, len(b.doc.Nodes)-1)

	return PrimitiveRef{
		MeshIdx: meshIdx, PrimitiveIdx: 0,
		PosAccessorIdx: posAccIdx, NormAccessorIdx: normAccIdx, IdxAccessorIdx: idxAccIdx,
	}, nil
}

func (b *Builder) writePositions(vertices []float32) ([3]float64, [3]float64) {
	min := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	max := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for i := 0; i+2 < len(vertices); i += 3 {
		for axis := 0; axis < 3; axis++ {
			v := float64(vertices[i+axis])
			if v < min[axis] {
				min[axis] = v
			}
			if v > max[axis] {
				max[axis] = v
			}
		}
	}
	b.writeFloats(vertices)
	return min, max
}

func (b *Builder) writeFloats(vals []float32) {
	for _, v := range vals {
		_ = binary.Write(&b.buf, binary.LittleEndian, v)
	}
}

func (b *Builder) writeIndices(indices []uint32) {
	for _, idx := range indices {
		_ = binary.Write(&b.buf, binary.LittleEndian, idx)
	}
}

// AddMaterials registers materials on the document. Converting hex colors
// that fail to parse as 6 hex digits falls back to the original's default
// mid-gray.
func (b *Builder) AddMaterials(materials []MaterialDef) {
	if len(materials) == 0 {
		return
	}
	b.doc.Materials = make([]materialDef, 0, len(materials))
	for _, m := range materials {
		r, g, bch := parseHexColor(m.ColorHex)
		md := materialDef{
			Name: m.Name,
			PbrMetallicRoughness: pbrDef{
				BaseColorFactor: [4]float64{r, g, bch, m.Opacity},
				MetallicFactor:  m.Metalness,
				RoughnessFactor: m.Roughness,
			},
		}
		if m.Opacity < 1.0 {
			md.AlphaMode = "BLEND"
		}
		b.doc.Materials = append(b.doc.Materials, md)
	}
}

func parseHexColor(hex string) (r, g, b float64) {
	hex = trimHash(hex)
	if len(hex) != 6 {
		return 0.7, 0.7, 0.7
	}
	rv, rerr := parseHexByte(hex[0:2])
	gv, gerr := parseHexByte(hex[2:4])
	bv, berr := parseHexByte(hex[4:6])
	if rerr != nil || gerr != nil || berr != nil {
		return 0.7, 0.7, 0.7
	}
	return float64(rv) / 255.0, float64(gv) / 255.0, float64(bv) / 255.0
}

func trimHash(s string) string {
	if len(s) > 0 && s[0] == '#' {
		return s[1:]
	}
	return s
}

func parseHexByte(s string) (int, error) {
	v, err := strconv.ParseInt(s, 16, 32)
	return int(v), err
}

// SetPrimitiveMaterial assigns materialIdx to meshIdx's sole primitive.
func (b *Builder) SetPrimitiveMaterial(meshIdx, materialIdx int) {
	if meshIdx < 0 || meshIdx >= len(b.doc.Meshes) {
		return
	}
	if materialIdx < 0 || materialIdx >= len(b.doc.Materials) {
		return
	}
	b.doc.Meshes[meshIdx].Primitives[0].Material = &materialIdx
}

// Finalize pads the buffer to a 4-byte boundary, records its length, and
// returns either GLB bytes (binary=true) or glTF JSON with a base64
// data-URI buffer (binary=false).
func (b *Builder) Finalize(binaryOut bool) ([]byte, error) {
	b.align(4)
	bufferBytes := b.buf.Bytes()
	b.doc.Buffers = append(b.doc.Buffers, bufferDef{ByteLength: len(bufferBytes)})

	if binaryOut {
		return buildGLB(b.doc, bufferBytes)
	}
	return buildGLTFJSON(b.doc, bufferBytes)
}

func buildGLTFJSON(doc document, bufferBytes []byte) ([]byte, error) {
	doc.Buffers[0].URI = "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(bufferBytes)
	return json.MarshalIndent(doc, "", "  ")
}

func buildGLB(doc document, bufferBytes []byte) ([]byte, error) {
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	padding := (4 - len(jsonBytes)%4) % 4
	for i := 0; i < padding; i++ {
		jsonBytes = append(jsonBytes, ' ')
	}

	var out bytes.Buffer
	out.WriteString("glTF")
	_ = binary.Write(&out, binary.LittleEndian, uint32(2))
	totalLength := uint32(12 + 8 + len(jsonBytes) + 8 + len(bufferBytes))
	_ = binary.Write(&out, binary.LittleEndian, totalLength)

	_ = binary.Write(&out, binary.LittleEndian, uint32(len(jsonBytes)))
	_ = binary.Write(&out, binary.LittleEndian, uint32(0x4E4F534A)) // "JSON"
	out.Write(jsonBytes)

	_ = binary.Write(&out, binary.LittleEndian, uint32(len(bufferBytes)))
	_ = binary.Write(&out, binary.LittleEndian, uint32(0x004E4942)) // "BIN\0"
	out.Write(bufferBytes)

	return out.Bytes(), nil
}
