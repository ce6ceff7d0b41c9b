package cmd

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeController struct {
	mu     sync.Mutex
	calls  []string
	delay  time.Duration
	done   chan struct{}
	closed bool
}

func newFakeController(delay time.Duration) *fakeController {
	return &fakeController{delay: delay, done: make(chan struct{})}
}

func (f *fakeController) record(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
}

func (f *fakeController) Pause()  { f.record("pause") }
func (f *fakeController) Resume() { f.record("resume") }
func (f *fakeController) Cancel() {
	f.record("cancel")
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.done)
	}
}
func (f *fakeController) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}
func (f *fakeController) Delay() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.delay
}
func (f *fakeController) Done() <-chan struct{} { return f.done }

func TestReadControls_AppliesCommandsInOrder(t *testing.T) {
	c := newFakeController(0)
	readControls(c, strings.NewReader("p\n r \nbogus\n\nq\np\n"))
	assert.Equal(t, []string{"pause", "resume", "cancel"}, c.calls)
}

func TestReadControls_StopsAtEOF(t *testing.T) {
	c := newFakeController(0)
	readControls(c, strings.NewReader("p\n"))
	assert.Equal(t, []string{"pause"}, c.calls)
}

func TestApplyControl_Speed(t *testing.T) {
	c := newFakeController(0)

	applyControl(c, "-")
	assert.Equal(t, speedStep, c.Delay())
	applyControl(c, "-")
	assert.Equal(t, 2*speedStep, c.Delay())
	applyControl(c, "+")
	assert.Equal(t, speedStep, c.Delay())
	applyControl(c, "+")
	applyControl(c, "+")
	assert.Less(t, c.Delay(), speedStep)
}
