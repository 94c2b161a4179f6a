// Package headers discovers which header files a C translation unit
// includes, by asking the compiler.
//
// The compiler runs with -H -fsyntax-only: it preprocesses and checks the
// source without producing an object, and prints every header it opens on
// stderr, one per line, prefixed with one dot per nesting level:
//
//	. usr/src/uts/common/sys/types.h
//	.. usr/src/uts/common/sys/feature_tests.h
//	. usr/src/uts/common/sys/param.h
//
// Anything else on stderr (warnings, the "Multiple include guards" hint)
// is ignored.
package headers

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"fortio.org/safecast"
)

// Include is one header reported by the compiler.
type Include struct {
	Path  string
	Depth uint8 // 1 for headers included directly by the source
}

// Paths returns the header paths of incs.
func Paths(incs []Include) []string {
	out := make([]string, len(incs))
	for i, inc := range incs {
		out[i] = inc.Path
	}
	return out
}

// ParseTrace extracts the include list from the compiler's -H output. A
// header included more than once is reported at its first position only,
// so the result is an ordered set.
func ParseTrace(stderr []byte) ([]Include, error) {
	var (
		incs []Include
		seen = make(map[string]struct{})
	)
	sc := bufio.NewScanner(bytes.NewReader(stderr))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		path := strings.TrimLeft(line, ".")
		dots := len(line) - len(path)
		// -H lines are dots then a space; "./x.h:3: warning" is a diagnostic
		if dots == 0 || dots == len(line) || line[dots] != ' ' {
			continue
		}
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		depth, err := safecast.Conv[uint8](dots)
		if err != nil {
			return nil, fmt.Errorf("include nesting of %s too deep: %w", path, err)
		}
		seen[path] = struct{}{}
		incs = append(incs, Include{Path: path, Depth: depth})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read compiler output: %w", err)
	}
	return incs, nil
}

// CompilerError reports a failed dependency scan. Stderr is the compiler's
// diagnostic text, unmodified.
type CompilerError struct {
	Compiler string
	Source   string
	Stderr   string
	Err      error
}

func (e *CompilerError) Error() string {
	msg := strings.TrimRight(e.Stderr, "\n")
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("using %s to determine header deps of %s failed: %s", e.Compiler, e.Source, msg)
}

func (e *CompilerError) Unwrap() error { return e.Err }

// Runner starts a process and returns what it wrote to stderr. A non-zero
// exit must be reported as an error; the stderr text is returned with it.
type Runner func(ctx context.Context, name string, args ...string) (stderr []byte, err error)

// ExecRunner runs name through os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

// Args returns the compiler arguments used to scan source.
func Args(flags []string, source string) []string {
	args := make([]string, 0, len(flags)+3)
	args = append(args, "-H", "-fsyntax-only")
	args = append(args, flags...)
	return append(args, source)
}

// scan runs one compiler invocation for source.
func scan(ctx context.Context, run Runner, compiler string, flags []string, source string) ([]Include, error) {
	stderr, err := run(ctx, compiler, Args(flags, source)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// killed because another unit already failed
			return nil, ctxErr
		}
		return nil, &CompilerError{Compiler: compiler, Source: source, Stderr: string(stderr), Err: err}
	}
	incs, err := ParseTrace(stderr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return incs, nil
}
