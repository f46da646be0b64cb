package docstore

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/klauspost/compress/gzip"
	"github.com/pelletier/go-toml/v2"
)

// FormatVersion tags every document written by this engine.
const FormatVersion = "scenemcp.stage/1"

// document is the on-disk shape of a stage.
type document struct {
	Format        string       `json:"format" yaml:"format" toml:"format"`
	UpAxis        string       `json:"up_axis" yaml:"up_axis" toml:"up_axis"`
	DefaultPrim   string       `json:"default_prim,omitempty" yaml:"default_prim,omitempty" toml:"default_prim,omitempty"`
	StartTimeCode float64      `json:"start_time_code" yaml:"start_time_code" toml:"start_time_code"`
	EndTimeCode   float64      `json:"end_time_code" yaml:"end_time_code" toml:"end_time_code"`
	Prims         []primRecord `json:"prims" yaml:"prims" toml:"prims"`
}

type primRecord struct {
	Path          string       `json:"path" yaml:"path" toml:"path"`
	Type          string       `json:"type,omitempty" yaml:"type,omitempty" toml:"type,omitempty"`
	Active        bool         `json:"active" yaml:"active" toml:"active"`
	Attributes    []attrRecord `json:"attributes,omitempty" yaml:"attributes,omitempty" toml:"attributes,omitempty"`
	APISchemas    []string     `json:"api_schemas,omitempty" yaml:"api_schemas,omitempty" toml:"api_schemas,omitempty"`
	Relationships []relRecord  `json:"relationships,omitempty" yaml:"relationships,omitempty" toml:"relationships,omitempty"`
	References    []refRecord  `json:"references,omitempty" yaml:"references,omitempty" toml:"references,omitempty"`
}

type attrRecord struct {
	Name        string         `json:"name" yaml:"name" toml:"name"`
	Type        string         `json:"type" yaml:"type" toml:"type"`
	Value       interface{}    `json:"value,omitempty" yaml:"value,omitempty" toml:"value,omitempty"`
	TimeSamples []sampleRecord `json:"time_samples,omitempty" yaml:"time_samples,omitempty" toml:"time_samples,omitempty"`
}

type sampleRecord struct {
	Time          float64     `json:"time" yaml:"time" toml:"time"`
	Value         interface{} `json:"value" yaml:"value" toml:"value"`
	Interpolation string      `json:"interpolation,omitempty" yaml:"interpolation,omitempty" toml:"interpolation,omitempty"`
}

type relRecord struct {
	Name    string   `json:"name" yaml:"name" toml:"name"`
	Targets []string `json:"targets" yaml:"targets" toml:"targets"`
}

type refRecord struct {
	AssetPath string `json:"asset_path" yaml:"asset_path" toml:"asset_path"`
	PrimPath  string `json:"prim_path,omitempty" yaml:"prim_path,omitempty" toml:"prim_path,omitempty"`
}

// codec serializes a document in one text format.
type codec struct {
	name      string
	marshal   func(v interface{}) ([]byte, error)
	unmarshal func(data []byte, v interface{}) error
}

var (
	jsonCodec = codec{
		name: "json",
		marshal: func(v interface{}) ([]byte, error) {
			return sonic.ConfigStd.MarshalIndent(v, "", "  ")
		},
		unmarshal: sonic.ConfigStd.Unmarshal,
	}
	yamlCodec = codec{
		name:    "yaml",
		marshal: func(v interface{}) ([]byte, error) { return yaml.Marshal(v) },
		unmarshal: func(data []byte, v interface{}) error {
			return yaml.Unmarshal(data, v)
		},
	}
	tomlCodec = codec{name: "toml", marshal: toml.Marshal, unmarshal: toml.Unmarshal}
)

// codecFor picks the codec from the file extension. A trailing .gz wraps
// the inner format in gzip. Unknown extensions (.usd, .usda, .usdc) use JSON.
func codecFor(path string) (codec, bool) {
	name := strings.ToLower(filepath.Base(path))
	compressed := strings.HasSuffix(name, ".gz")
	name = strings.TrimSuffix(name, ".gz")

	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return yamlCodec, compressed
	case ".toml":
		return tomlCodec, compressed
	default:
		return jsonCodec, compressed
	}
}

func encode(path string, doc *document) ([]byte, error) {
	c, compressed := codecFor(path)

	data, err := c.marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.name, err)
	}
	if !compressed {
		return data, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(path string, data []byte) (*document, error) {
	c, compressed := codecFor(path)

	if compressed {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()

		if data, err = io.ReadAll(zr); err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
	}

	data, err := toUTF8(data)
	if err != nil {
		return nil, err
	}

	var doc document
	if err := c.unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.name, err)
	}
	if doc.Format != "" && doc.Format != FormatVersion {
		return nil, fmt.Errorf("unsupported document format %q", doc.Format)
	}
	return &doc, nil
}
