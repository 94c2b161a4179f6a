package ninja

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// DumpFormat selects the machine-readable graph encoding.
type DumpFormat string

const (
	DumpJSON    DumpFormat = "json"
	DumpMsgpack DumpFormat = "msgpack"
)

// ParseDumpFormat validates a --format value.
func ParseDumpFormat(s string) (DumpFormat, error) {
	switch DumpFormat(strings.ToLower(strings.TrimSpace(s))) {
	case DumpJSON:
		return DumpJSON, nil
	case DumpMsgpack:
		return DumpMsgpack, nil
	default:
		return "", fmt.Errorf("unsupported format %q (must be json or msgpack)", s)
	}
}

// Dump encodes the graph in the given format.
func (g *Graph) Dump(w io.Writer, format DumpFormat) error {
	switch format {
	case DumpJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(g)
	case DumpMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetOmitEmpty(true)
		return enc.Encode(g)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// LoadMsgpack decodes a graph previously written by Dump.
func LoadMsgpack(r io.Reader) (*Graph, error) {
	var g Graph
	if err := msgpack.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	return &g, nil
}
