package gltf

// document mirrors the glTF 2.0 top-level JSON object. Field order matches
// the declaration order below on marshal, which is the conventional glTF
// layout (asset first, buffers just before the optional materials) even
// though nothing in the format
// requires it.
type document struct {
	Asset       assetDef       `json:"asset"`
	Scene       int            `json:"scene"`
	Scenes      []sceneDef     `json:"scenes"`
	Nodes       []nodeDef      `json:"nodes"`
	Meshes      []meshDef      `json:"meshes"`
	Accessors   []accessorDef  `json:"accessors"`
	BufferViews []bufferViewDef `json:"bufferViews"`
	Buffers     []bufferDef    `json:"buffers"`
	Materials   []materialDef  `json:"materials,omitempty"`
}

type assetDef struct {
	Version   string         `json:"version"`
	Generator string         `json:"generator"`
	Extras    map[string]any `json:"extras,omitempty"`
}

type sceneDef struct {
	Nodes []int `json:"nodes"`
}

type nodeDef struct {
	Mesh int    `json:"mesh"`
	Name string `json:"name"`
}

type meshDef struct {
	Primitives []primitiveDef `json:"primitives"`
	Name       string         `json:"name"`
}

type primitiveDef struct {
	Attributes map[string]int `json:"attributes"`
	Mode       int            `json:"mode"`
	Indices    *int           `json:"indices,omitempty"`
	Material   *int           `json:"material,omitempty"`
}

type accessorDef struct {
	BufferView    int       `json:"bufferView"`
	ByteOffset    int       `json:"byteOffset"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Min           []float64 `json:"min,omitempty"`
	Max           []float64 `json:"max,omitempty"`
}

// glTF component types and buffer view targets (spec §4.10).
const (
	ComponentTypeFloat        = 5126
	ComponentTypeUnsignedInt  = 5125
	TargetArrayBuffer         = 34962
	TargetElementArrayBuffer  = 34963
)

type bufferViewDef struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
	Target     int `json:"target"`
}

type bufferDef struct {
	ByteLength int    `json:"byteLength"`
	URI        string `json:"uri,omitempty"`
}

type materialDef struct {
	Name                 string    `json:"name"`
	PbrMetallicRoughness pbrDef    `json:"pbrMetallicRoughness"`
	AlphaMode            string    `json:"alphaMode,omitempty"`
}

type pbrDef struct {
	BaseColorFactor [4]float64 `json:"baseColorFactor"`
	MetallicFactor  float64    `json:"metallicFactor"`
	RoughnessFactor float64    `json:"roughnessFactor"`
}

// ExportMetadata is embedded into the glTF asset.extras block.
type ExportMetadata struct {
	Generator string
	Extras    map[string]any
}

// MaterialDef is the caller-facing material description passed to
// AddMaterials, mirroring the original's MaterialDef dataclass fields.
type MaterialDef struct {
	Name       string
	ColorHex   string // "#rrggbb"
	Opacity    float64
	Metalness  float64
	Roughness  float64
}
