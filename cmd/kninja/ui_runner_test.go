package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"kninja/internal/genpipeline"
	"kninja/internal/toolchain"
)

func writeDescription(t *testing.T, dir string) {
	t.Helper()
	path := filepath.Join(dir, "usr/src/drv/build.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	text := "[module]\nname = \"drv\"\nsrc = [\"a.c\", \"b.c\"]\n"
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSuperviseGenerateStopsRunWhenViewQuits(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeDescription(t, dir)

	// the compiler never finishes on its own
	hang := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	req := &genpipeline.Request{
		Toolchain: toolchain.Default(),
		Output:    genpipeline.DefaultOutput,
		Run:       hang,
	}
	quitEarly := func(events <-chan genpipeline.Event) (bool, error) {
		<-events
		return true, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := superviseGenerate(context.Background(), req, quitEarly)
		done <- err
	}()
	select {
	case err := <-done:
		if !errors.Is(err, errInterrupted) {
			t.Fatalf("err = %v, want errInterrupted", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run was not cancelled after the view quit")
	}
	if _, err := os.Stat(genpipeline.DefaultOutput); !os.IsNotExist(err) {
		t.Fatal("an interrupted run must not write the build file")
	}
}

func TestSuperviseGenerateDrainsAfterViewError(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeDescription(t, dir)

	ok := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(". sys/types.h\n"), nil
	}
	req := &genpipeline.Request{Toolchain: toolchain.Default(), Run: ok}
	viewErr := errors.New("no tty")
	broken := func(events <-chan genpipeline.Event) (bool, error) {
		return false, viewErr
	}

	done := make(chan error, 1)
	go func() {
		_, err := superviseGenerate(context.Background(), req, broken)
		done <- err
	}()
	select {
	case err := <-done:
		// either the run finished first and the view error surfaces, or
		// the run was cancelled; both must return without blocking
		if err == nil {
			t.Fatal("expected an error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor deadlocked")
	}
}
