package observ

import (
	"strings"
	"testing"
)

func TestTimerReportKeepsOrder(t *testing.T) {
	tm := NewTimer()
	a := tm.Begin("discover")
	tm.End(a, "3 files")
	b := tm.Begin("resolve")
	tm.End(b, "")
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].Name != "discover" || r.Phases[1].Name != "resolve" {
		t.Fatalf("unexpected phases: %+v", r.Phases)
	}
	if p, ok := r.Phase("discover"); !ok || p.Note != "3 files" {
		t.Fatalf("Phase(discover) = %+v, %v", p, ok)
	}
	if _, ok := r.Phase("emit"); ok {
		t.Fatal("unexpected phase emit")
	}
	if r.TotalMS < r.Phases[0].DurationMS {
		t.Fatal("total must include every phase")
	}
}

func TestTimerSummary(t *testing.T) {
	tm := NewTimer()
	tm.End(tm.Begin("write"), "build.ninja")
	s := tm.Summary()
	if !strings.HasPrefix(s, "timings:\n  write") || !strings.Contains(s, "// build.ninja") || !strings.Contains(s, "total") {
		t.Fatalf("unexpected summary:\n%s", s)
	}
}

func TestNilTimerReport(t *testing.T) {
	var tm *Timer
	if r := tm.Report(); len(r.Phases) != 0 {
		t.Fatal("nil timer must report nothing")
	}
}
