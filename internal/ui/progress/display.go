// Package progress draws transient status lines on stderr: a spinner
// while the cache root is scanned and a bar while an update or delete
// batch runs. stdout stays clean for piping
// (e.g. cachemgr path flip | xargs ls).
package progress

import (
	"fmt"
	"os"
	"sync"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/colorprofile"
)

// stopTimeout bounds how long Stop waits for the program to exit.
const stopTimeout = 500 * time.Millisecond

// display runs one bubbletea program fed by a channel of updates. Updates
// sent while the channel is full are dropped; the next one supersedes
// them anyway.
type display struct {
	mu      sync.Mutex
	updates chan tea.Msg
	done    chan struct{}
	program *tea.Program
	running bool
}

func newDisplay() *display {
	return &display{
		updates: make(chan tea.Msg, 16),
		done:    make(chan struct{}),
	}
}

// start launches the model built by build once. It reports whether the
// program was started by this call.
func (d *display) start(build func(next tea.Cmd) tea.Model) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return false
	}
	d.program = newProgram(build(d.next))
	d.running = true
	go func() {
		_, _ = d.program.Run()
		close(d.done)
	}()
	return true
}

// next waits for the following update; a closed channel quits.
func (d *display) next() tea.Msg {
	msg, ok := <-d.updates
	if !ok {
		return tea.QuitMsg{}
	}
	return msg
}

// send queues msg. It returns false when the display is not running.
func (d *display) send(msg tea.Msg) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return false
	}
	select {
	case d.updates <- msg:
	default:
	}
	return true
}

// stop quits the program and clears its line. Safe to call repeatedly.
func (d *display) stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.updates)
	p := d.program
	d.mu.Unlock()

	if p != nil {
		p.Quit()
		select {
		case <-d.done:
		case <-time.After(stopTimeout):
		}
	}
	fmt.Fprint(os.Stderr, "\r\033[K")
}

// newProgram runs a model on stderr without taking over signal handling,
// so ctrl-c still cancels the command's context.
func newProgram(model tea.Model) *tea.Program {
	return tea.NewProgram(model,
		tea.WithoutSignalHandler(),
		tea.WithOutput(os.Stderr),
		tea.WithColorProfile(colorprofile.Detect(os.Stderr, os.Environ())),
	)
}
