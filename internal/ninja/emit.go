package ninja

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteTo serialises the graph: variables, then rules, then statements.
func (g *Graph) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)

	for _, v := range g.Variables {
		fmt.Fprintf(bw, "%s = %s\n", v.Name, v.Value)
	}
	for _, r := range g.Rules {
		fmt.Fprintf(bw, "rule %s\n  command = %s\n", r.Name, r.Command)
	}
	for i := range g.Statements {
		writeStatement(bw, &g.Statements[i])
	}
	err := bw.Flush()
	return cw.n, err
}

func writeStatement(w *bufio.Writer, s *BuildStatement) {
	w.WriteString("build ")
	w.WriteString(EscapePath(s.Output))
	w.WriteString(": ")
	w.WriteString(s.Rule)
	for _, in := range s.Inputs {
		w.WriteByte(' ')
		w.WriteString(EscapePath(in))
	}
	if len(s.Implicit) > 0 {
		w.WriteString(" |")
		for _, dep := range s.Implicit {
			w.WriteByte(' ')
			w.WriteString(EscapePath(dep))
		}
	}
	w.WriteByte('\n')
	for _, v := range s.Variables {
		fmt.Fprintf(w, "  %s = %s\n", v.Name, v.Value)
	}
}

// String returns the serialised graph.
func (g *Graph) String() string {
	var sb strings.Builder
	_, _ = g.WriteTo(&sb) //nolint:errcheck // strings.Builder never fails
	return sb.String()
}

// WriteFile replaces path with the serialised graph. The text goes to a
// temporary file in the same directory first, so a failed run never leaves a
// truncated build file behind.
func (g *Graph) WriteFile(path string) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = g.WriteTo(tmp); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	// #nosec G302 -- build files are read by the build executor, not secrets
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

var pathEscaper = strings.NewReplacer("$", "$$", " ", "$ ", ":", "$:")

// EscapePath escapes the characters ninja treats specially in paths.
func EscapePath(p string) string {
	if !strings.ContainsAny(p, "$ :") {
		return p
	}
	return pathEscaper.Replace(p)
}

// EscapeValue escapes '$' so that value is taken literally.
func EscapeValue(v string) string {
	return strings.ReplaceAll(v, "$", "$$")
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
