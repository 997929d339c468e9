package progress

import (
	"strings"
	"testing"

	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/spinner"
)

func TestBarModel_Render(t *testing.T) {
	t.Parallel()

	m := barModel{bar: progress.New(progress.WithWidth(10), progress.WithoutPercentage())}
	if got := m.render(); got != "" {
		t.Errorf("render() without steps = %q, want empty", got)
	}

	next, _ := m.Update(stepMsg{done: 2, total: 12, label: "deleting flip/v003"})
	got := next.(barModel).render()
	if !strings.HasSuffix(got, " 2/12 deleting flip/v003") {
		t.Errorf("render() = %q, want suffix %q", got, " 2/12 deleting flip/v003")
	}
}

func TestSpinnerModel_Message(t *testing.T) {
	t.Parallel()

	m := spinnerModel{spinner: spinner.New(), message: "Scanning /job/geo"}
	next, _ := m.Update(messageMsg("Scanning /job/geo: 3 caches"))

	view := next.(spinnerModel).View().Content
	if !strings.HasSuffix(view, " Scanning /job/geo: 3 caches") {
		t.Errorf("View() = %q", view)
	}
	if got := (spinnerModel{spinner: spinner.New()}).View().Content; got != "" {
		t.Errorf("View() without message = %q, want empty", got)
	}
}

func TestDisplay_NotRunning(t *testing.T) {
	t.Parallel()

	d := newDisplay()
	if d.send(messageMsg("x")) {
		t.Error("send() on a stopped display reported running")
	}
	d.stop()
	d.stop()
}

func TestSpinner_UpdateBeforeStart(t *testing.T) {
	t.Parallel()

	s := NewSpinner("Scanning")
	s.UpdateMessage("Scanning /job/geo")
	if s.initial != "Scanning /job/geo" {
		t.Errorf("initial = %q", s.initial)
	}
	s.Stop()
}
