package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"kninja/internal/genpipeline"
	"kninja/internal/ui"
)

// errInterrupted is returned when the user quits the progress view.
var errInterrupted = errors.New("interrupted")

type generateOutcome struct {
	result genpipeline.Result
	err    error
}

// progressView renders events until it returns. It reports whether the
// user asked to stop.
type progressView func(events <-chan genpipeline.Event) (interrupted bool, err error)

// runGenerateWithUI runs the generator in the background and renders its
// progress until the event stream closes or the user quits.
func runGenerateWithUI(ctx context.Context, title string, req *genpipeline.Request) (genpipeline.Result, error) {
	return superviseGenerate(ctx, req, func(events <-chan genpipeline.Event) (bool, error) {
		program := tea.NewProgram(ui.NewProgressModel(title, events), tea.WithOutput(os.Stdout), tea.WithContext(ctx))
		final, err := program.Run()
		return ui.Interrupted(final), err
	})
}

func superviseGenerate(ctx context.Context, req *genpipeline.Request, view progressView) (genpipeline.Result, error) {
	if req == nil {
		return genpipeline.Result{}, fmt.Errorf("missing generate request")
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan genpipeline.Event, 256)
	outcomeCh := make(chan generateOutcome, 1)
	go func() {
		reqCopy := *req
		reqCopy.Progress = genpipeline.ChannelSink{Ch: events}
		res, err := genpipeline.Generate(runCtx, &reqCopy)
		outcomeCh <- generateOutcome{result: res, err: err}
		close(events)
	}()

	interrupted, viewErr := view(events)
	// the view may stop before the stream closes; stop the run and keep
	// the producer from blocking on a full channel
	cancel()
	for range events {
	}
	outcome := <-outcomeCh

	switch {
	case interrupted && outcome.err != nil:
		return outcome.result, errInterrupted
	case viewErr != nil && outcome.err == nil:
		return outcome.result, viewErr
	default:
		return outcome.result, outcome.err
	}
}
