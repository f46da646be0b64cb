// Package docstore is the bundled scene engine: each stage is an in-memory
// prim tree persisted as a structured text document.
//
// The file extension selects the encoding:
//   - .yaml, .yml: YAML (goccy/go-yaml)
//   - .toml: TOML (pelletier/go-toml/v2)
//   - anything else, including .usd, .usda and .usdc: JSON (bytedance/sonic)
//
// A trailing .gz compresses the inner encoding with gzip. Writes are atomic.
package docstore
