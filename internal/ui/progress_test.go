package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"kninja/internal/genpipeline"
)

func TestApplyEventTracksFiles(t *testing.T) {
	m := NewProgressModel("generating", nil).(*progressModel)

	m.applyEvent(genpipeline.Event{File: "usr/src/a/build.toml", Stage: genpipeline.StageParse, Status: genpipeline.StatusQueued})
	m.applyEvent(genpipeline.Event{File: "usr/src/b/build.toml", Stage: genpipeline.StageParse, Status: genpipeline.StatusQueued})
	if len(m.items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(m.items))
	}

	m.applyEvent(genpipeline.Event{
		File: "usr/src/a/build.toml", Stage: genpipeline.StageResolve, Status: genpipeline.StatusWorking, Done: 1, Total: 4,
	})
	if got := m.items[0]; got.status != "scanning" || got.units != 1 || got.total != 4 {
		t.Fatalf("unexpected item %+v", got)
	}
	if p := m.percent(); p != 0.125 {
		t.Fatalf("percent = %v, want 0.125", p)
	}

	m.applyEvent(genpipeline.Event{File: "usr/src/b/build.toml", Stage: genpipeline.StageResolve, Status: genpipeline.StatusDone})
	if p := m.percent(); p != 0.625 {
		t.Fatalf("percent = %v, want 0.625", p)
	}
}

func TestApplyEventRunLevelStage(t *testing.T) {
	m := NewProgressModel("generating", nil).(*progressModel)
	m.applyEvent(genpipeline.Event{Stage: genpipeline.StageWrite, Status: genpipeline.StatusWorking})
	if m.stageLabel != "writing" {
		t.Fatalf("stageLabel = %q", m.stageLabel)
	}
	if len(m.items) != 0 {
		t.Fatal("run-level events must not add items")
	}
}

func TestViewListsFiles(t *testing.T) {
	m := NewProgressModel("generating", nil).(*progressModel)
	m.applyEvent(genpipeline.Event{
		File: "usr/src/drv/build.toml", Stage: genpipeline.StageResolve, Status: genpipeline.StatusWorking, Done: 2, Total: 3,
	})
	out := m.View()
	if !strings.Contains(out, "usr/src/drv/build.toml [2/3]") {
		t.Fatalf("view missing file line:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	got := truncate("usr/src/uts/common/io/build.toml", 12)
	if !strings.HasPrefix(got, "usr/") || !strings.HasSuffix(got, "...") || runewidth.StringWidth(got) > 12 {
		t.Fatalf("truncate = %q", got)
	}
	if got = truncate("short", 12); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}

func TestCtrlCQuitsAndMarksInterrupted(t *testing.T) {
	m := NewProgressModel("generating", nil)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c must return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("ctrl+c must quit the program")
	}
	if !Interrupted(next) {
		t.Fatal("model must record the interruption")
	}

	_, cmd = NewProgressModel("generating", nil).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd != nil {
		t.Fatal("other keys must be ignored")
	}
}
