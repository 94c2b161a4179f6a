package spec

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/unicode/norm"
)

type rawCore struct {
	Src []string `toml:"src"`
}

type rawModule struct {
	Name         string   `toml:"name"`
	Src          []string `toml:"src"`
	Dependencies []string `toml:"dependencies"`
}

type rawFile struct {
	Core    *rawCore   `toml:"core"`
	Genunix *rawCore   `toml:"genunix"`
	Module  *rawModule `toml:"module"`
}

var tables = []string{"core", "genunix", "module"}

// Load reads and validates the description at path.
func Load(path string) (File, error) {
	var raw rawFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return File{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	desc, err := decode(&raw, meta)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return File{Path: path, Desc: desc}, nil
}

// Parse decodes a description from text; path is only used in errors and
// as the base for relative sources.
func Parse(path, text string) (File, error) {
	var raw rawFile
	meta, err := toml.Decode(text, &raw)
	if err != nil {
		return File{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	desc, err := decode(&raw, meta)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return File{Path: path, Desc: desc}, nil
}

func decode(raw *rawFile, meta toml.MetaData) (Description, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}

	var defined []string
	for _, t := range tables {
		if meta.IsDefined(t) {
			defined = append(defined, t)
		}
	}
	switch len(defined) {
	case 0:
		return nil, fmt.Errorf("expected a [core] or [module] table")
	case 1:
	default:
		return nil, fmt.Errorf("ambiguous description: [%s] and [%s] both present", defined[0], defined[1])
	}

	tag := defined[0]
	switch tag {
	case "core", "genunix":
		if !meta.IsDefined(tag, "src") {
			return nil, fmt.Errorf("missing [%s].src", tag)
		}
		src := raw.Core
		if tag == "genunix" {
			src = raw.Genunix
		}
		return &Core{Src: src.Src}, nil
	default:
		if !meta.IsDefined("module", "name") {
			return nil, fmt.Errorf("missing [module].name")
		}
		if !meta.IsDefined("module", "src") {
			return nil, fmt.Errorf("missing [module].src")
		}
		name, err := moduleName(raw.Module.Name)
		if err != nil {
			return nil, err
		}
		return &Module{
			Name:         name,
			Src:          raw.Module.Src,
			Dependencies: raw.Module.Dependencies,
		}, nil
	}
}

// moduleName validates a module name. The name becomes a file name under
// the module output root, so it is NFC-normalised and may not contain a
// path separator.
func moduleName(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	switch {
	case name == "":
		return "", fmt.Errorf("[module].name must not be empty")
	case name == "." || name == "..":
		return "", fmt.Errorf("invalid [module].name %q", name)
	case strings.ContainsAny(name, "/\\ \t"):
		return "", fmt.Errorf("invalid [module].name %q: must not contain separators or spaces", name)
	}
	return name, nil
}
