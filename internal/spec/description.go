// Package spec models build descriptions and translates them into build
// statements.
//
// A description is exactly one of two records, read from a build.toml:
//
//	[core]                       [module]
//	src = ["os/main.c", ...]     name = "zfs"
//	                             src = ["spa.c", ...]
//	                             dependencies = ["crypto"]
//
// The core record describes the kernel image every module links against;
// "genunix" is accepted as another name for the core table.
package spec

// Kind discriminates descriptions.
type Kind uint8

const (
	KindCore Kind = iota + 1
	KindModule
)

func (k Kind) String() string {
	switch k {
	case KindCore:
		return "core"
	case KindModule:
		return "module"
	default:
		return "unknown"
	}
}

// Description is implemented by *Core and *Module only.
type Description interface {
	Kind() Kind
	// Sources returns the declared sources, relative to the description's
	// directory, in declaration order.
	Sources() []string
	description()
}

// Core describes the core kernel image.
type Core struct {
	Src []string
}

func (*Core) Kind() Kind          { return KindCore }
func (c *Core) Sources() []string { return c.Src }
func (*Core) description()        {}

// Module describes an independently linked kernel module.
type Module struct {
	Name string
	Src  []string
	// Dependencies names other modules this one links against, in the
	// order the linker flags are emitted. Names are not checked against
	// the discovered modules; see kninja check.
	Dependencies []string
}

func (*Module) Kind() Kind          { return KindModule }
func (m *Module) Sources() []string { return m.Src }
func (*Module) description()        {}

// File is a description together with the path it was read from. Relative
// source paths resolve against the directory of Path.
type File struct {
	Path string
	Desc Description
}
