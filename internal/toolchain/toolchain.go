// Package toolchain holds the fixed compiler and linker configuration the
// generated graph is written against. The values must match the toolchain
// that produced the existing kernel objects, so they are not user-editable.
package toolchain

import (
	"path/filepath"
	"slices"
)

// Label is the version label ctfconvert and ctfmerge stamp into objects.
const Label = "5.11"

// Config is the toolchain used by every rule of the graph. Build it once with
// Default and pass it by value; nothing mutates it after startup.
type Config struct {
	Compiler   string
	Linker     string
	CTFConvert string
	CTFMerge   string
	Strip      string
	Label      string

	// CFlags is the kernel compile flag set. Header discovery passes the same
	// flags so that include paths and predefined macros agree with the real
	// compile.
	CFlags  []string
	LDFlags []string

	// OutputRoot prefixes every generated path.
	OutputRoot string
	// CoreImage is the link output every module depends on.
	CoreImage string
	// ModuleRoot is the directory holding linked modules.
	ModuleRoot string
}

var kernelCFlags = []string{
	"-std=gnu99",
	"-O3",
	"-g",
	"-gdwarf-2",
	"-gstrict-dwarf",
	"-m64",
	"-mcmodel=kernel",
	"-mindirect-branch-register",
	"-mindirect-branch=thunk-extern",
	"-mno-mmx",
	"-mno-red-zone",
	"-mno-sse",
	"-msave-args",
	"-D__sun",
	"-D__SVR4",
	"-D_ASM_INLINES",
	"-D_DDI_STRICT",
	"-D_ELF64",
	"-D_KERNEL",
	"-D_MACHDEP",
	"-D_SYSCALL32",
	"-D_SYSCALL32_IMPL",
	"-Dlint",
	"-Dsun",
	"-U__i386",
	"-Ui386",
	"-Iusr/src/uts/intel",
	"-Iusr/src/uts/common",
	"-Iusr/src/common",
	"-Iusr/src/uts/i86pc",
	"-Iusr/src/uts/common/fs/zfs",
	"-ffreestanding",
	"-fno-inline-small-functions",
	"-fno-inline-functions-called-once",
	"-fno-ipa-cp",
	"-fno-ipa-icf",
	"-fno-clone-functions",
	"-fno-reorder-functions",
	"-fno-reorder-blocks-and-partition",
	"-fno-aggressive-loop-optimizations",
	"-fno-shrink-wrap",
	"-fno-asynchronous-unwind-tables",
	"-fstack-protector-strong",
	"-fdiagnostics-color=always",
	"--param=max-inline-insns-single=450",
}

var kernelLDFlags = []string{"-ztype=kmod"}

// Default returns the kernel toolchain configuration.
func Default() Config {
	const outputRoot = "bld"
	return Config{
		Compiler:   "gcc-10",
		Linker:     "ld",
		CTFConvert: "ctfconvert",
		CTFMerge:   "ctfmerge",
		Strip:      "strip",
		Label:      Label,
		CFlags:     slices.Clone(kernelCFlags),
		LDFlags:    slices.Clone(kernelLDFlags),
		OutputRoot: outputRoot,
		CoreImage:  filepath.Join(outputRoot, "genunix"),
		ModuleRoot: filepath.Join(outputRoot, "modules"),
	}
}

// ModuleOutput returns the link output path of the named module.
func (c Config) ModuleOutput(name string) string {
	return filepath.Join(c.ModuleRoot, name)
}
