package darkimage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"fieldingest/internal/darkimage"
	"fieldingest/internal/poller"
	"fieldingest/internal/testsupport"
)

func waitStage(t *testing.T, w *darkimage.Workflow, clock *testsupport.FakeClock, want darkimage.Stage) darkimage.State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if state := w.State(); state.Stage == want {
			return state
		}
		clock.Tick()
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("workflow did not reach %s, at %s", want, w.State().Stage)
	return darkimage.State{}
}

func newWorkflow(backend *testsupport.FakeBackend, clock *testsupport.FakeClock) *darkimage.Workflow {
	return darkimage.New(backend, poller.Options{Clock: clock}, nil)
}

func TestDarkSamplesDefaultToAllSelected(t *testing.T) {
	backend := testsupport.NewFakeBackend()
	backend.DarkPaths = []string{"/src/a.jpg", "/src/b.jpg"}
	clock := testsupport.NewFakeClock()
	w := newWorkflow(backend, clock)

	if err := w.Start(context.Background(), []string{"/src/a.jpg", "/src/b.jpg", "/src/c.jpg"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if backend.Calls("submit_dark_sample") != 0 {
		t.Fatal("dark sample must wait for detection to complete")
	}
	state := waitStage(t, w, clock, darkimage.StageDone)

	if len(backend.DarkSampleRequests) != 1 || len(backend.DarkSampleRequests[0]) != 2 {
		t.Fatalf("expected flagged paths submitted for sampling, got %v", backend.DarkSampleRequests)
	}
	if state.SampleJobID == "" || len(state.Samples) != 2 {
		t.Fatalf("unexpected state %+v", state)
	}
	if len(state.Selected) != len(state.Samples) {
		t.Fatalf("expected every sample selected, got %v", state.Selected)
	}
}

func TestToggleReducesSelectionByOne(t *testing.T) {
	backend := testsupport.NewFakeBackend()
	backend.DarkPaths = []string{"/src/a.jpg", "/src/b.jpg"}
	clock := testsupport.NewFakeClock()
	w := newWorkflow(backend, clock)
	if err := w.Start(context.Background(), backend.DarkPaths); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStage(t, w, clock, darkimage.StageDone)

	if err := w.Toggle("a_color_corrected.jpg"); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if got := w.Selected(); len(got) != 1 || got[0] != "b_color_corrected.jpg" {
		t.Fatalf("unexpected selection %v", got)
	}
	if err := w.Toggle("missing.jpg"); !errors.Is(err, darkimage.ErrUnknownSample) {
		t.Fatalf("expected ErrUnknownSample, got %v", err)
	}
}

func TestIsDarkRequiresColorCorrectAndSelection(t *testing.T) {
	backend := testsupport.NewFakeBackend()
	backend.DarkPaths = []string{"/src/a.jpg", "/src/b.jpg"}
	clock := testsupport.NewFakeClock()
	w := newWorkflow(backend, clock)
	if err := w.Start(context.Background(), backend.DarkPaths); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStage(t, w, clock, darkimage.StageDone)
	_ = w.Toggle("b_color_corrected.jpg")

	if !w.IsDark("a", true) || !w.IsDark("a.jpg", true) {
		t.Fatal("expected selected sample to mark its image dark")
	}
	if w.IsDark("a", false) {
		t.Fatal("colour correction off must disable dark handling")
	}
	if w.IsDark("b", true) || w.IsDark("c", true) {
		t.Fatal("deselected or unflagged images are not dark")
	}
}

func TestEmptyDetectionSkipsSampling(t *testing.T) {
	backend := testsupport.NewFakeBackend()
	clock := testsupport.NewFakeClock()
	w := newWorkflow(backend, clock)
	if err := w.Start(context.Background(), []string{"/src/a.jpg"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	state := waitStage(t, w, clock, darkimage.StageDone)
	if backend.Calls("submit_dark_sample") != 0 || state.SampleJobID != "" {
		t.Fatalf("expected no dark sample job, got %+v", state)
	}
}

func TestDetectionFailureStopsChain(t *testing.T) {
	backend := testsupport.NewFakeBackend()
	backend.Script(testsupport.KindDark, testsupport.Failed("model unavailable"))
	clock := testsupport.NewFakeClock()
	w := newWorkflow(backend, clock)
	if err := w.Start(context.Background(), []string{"/src/a.jpg"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	state := waitStage(t, w, clock, darkimage.StageFailed)
	if !errors.Is(state.Err, poller.ErrJobFailed) {
		t.Fatalf("expected ErrJobFailed, got %v", state.Err)
	}
	if backend.Calls("dark") != 0 || backend.Calls("submit_dark_sample") != 0 {
		t.Fatal("failed detection must not fetch or chain")
	}
}

func TestCancelDeletesDarkSamples(t *testing.T) {
	backend := testsupport.NewFakeBackend()
	backend.DarkPaths = []string{"/src/a.jpg"}
	clock := testsupport.NewFakeClock()
	w := newWorkflow(backend, clock)
	if err := w.Start(context.Background(), backend.DarkPaths); err != nil {
		t.Fatalf("Start: %v", err)
	}
	state := waitStage(t, w, clock, darkimage.StageDone)

	w.Cancel(context.Background())
	if len(backend.DeletedDarkSamples) != 1 || backend.DeletedDarkSamples[0] != state.SampleJobID {
		t.Fatalf("expected dark samples of %s deleted, got %v", state.SampleJobID, backend.DeletedDarkSamples)
	}
	if got := w.State(); got.Stage != darkimage.StageIdle || len(got.Selected) != 0 {
		t.Fatalf("expected idle state after cancel, got %+v", got)
	}
}

func TestStopAbandonsRunningDetection(t *testing.T) {
	backend := testsupport.NewFakeBackend()
	backend.DarkPaths = []string{"/src/a.jpg"}
	backend.Script(testsupport.KindDark, testsupport.Queued(), testsupport.Completed())
	clock := testsupport.NewFakeClock()
	w := newWorkflow(backend, clock)
	if err := w.Start(context.Background(), backend.DarkPaths); err != nil {
		t.Fatalf("Start: %v", err)
	}

	w.Stop()
	clock.TickN(5)

	if backend.Calls("submit_dark_sample") != 0 {
		t.Fatal("stopped detection must not chain into sampling")
	}
	if got := w.State(); got.Stage != darkimage.StageDetecting {
		t.Fatalf("expected stage kept at detecting, got %s", got.Stage)
	}
}

func TestStopKeepsSelection(t *testing.T) {
	backend := testsupport.NewFakeBackend()
	backend.DarkPaths = []string{"/src/a.jpg", "/src/b.jpg"}
	clock := testsupport.NewFakeClock()
	w := newWorkflow(backend, clock)
	if err := w.Start(context.Background(), backend.DarkPaths); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStage(t, w, clock, darkimage.StageDone)
	_ = w.Toggle("b_color_corrected.jpg")

	w.Stop()
	if got := w.Selected(); len(got) != 1 || got[0] != "a_color_corrected.jpg" {
		t.Fatalf("selection changed by Stop: %v", got)
	}
	if !w.IsDark("a", true) {
		t.Fatal("expected a to stay dark after Stop")
	}
	if len(backend.DeletedDarkSamples) != 0 {
		t.Fatalf("Stop must not delete samples, got %v", backend.DeletedDarkSamples)
	}
}

func TestBaseName(t *testing.T) {
	cases := map[string]string{
		"IMG_1_color_corrected.jpg": "IMG_1",
		`C:\x\IMG_1.JPG`:            "IMG_1",
		"/samples/IMG_2":            "IMG_2",
		"IMG_3_color_corrected":     "IMG_3",
	}
	for in, want := range cases {
		if got := darkimage.BaseName(in); got != want {
			t.Fatalf("BaseName(%q) = %q, want %q", in, got, want)
		}
	}
}
