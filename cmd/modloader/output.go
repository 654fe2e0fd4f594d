// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/factoriotools/modloader/internal/config"
	"github.com/factoriotools/modloader/pkg/propertytree"
)

// tomlRootKey holds a document that is not a dictionary, since TOML
// documents are always tables.
const tomlRootKey = "value"

// writeValue encodes v to w in the requested format.
func writeValue(w io.Writer, v propertytree.Value, format config.OutputFormat) error {
	switch format {
	case config.OutputFormatTOML:
		root, ok := tomlSafe(v.Native()).(map[string]any)
		if !ok {
			root = map[string]any{tomlRootKey: tomlSafe(v.Native())}
		}
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		return enc.Encode(root)
	case config.OutputFormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	default:
		return &config.InvalidOutputFormatError{Value: format}
	}
}

// tomlSafe drops nil dictionary entries and replaces nil list items with
// empty strings. TOML has no null.
func tomlSafe(x any) any {
	switch x := x.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, v := range x {
			if v != nil {
				out[k] = tomlSafe(v)
			}
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, v := range x {
			if v == nil {
				out[i] = ""
				continue
			}
			out[i] = tomlSafe(v)
		}
		return out
	default:
		return x
	}
}

// writeOutput writes v to path, or to stdout when path is empty.
func writeOutput(stdout io.Writer, path string, v propertytree.Value, format config.OutputFormat) error {
	if path == "" {
		return writeValue(stdout, v, format)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := writeValue(f, v, format); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
