package cmd

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/station-sim/sim"
)

// speedStep is the smallest delay "-" moves to from an unpaced run.
const speedStep = 10 * time.Millisecond

// controller is the subset of the engine the stdin controls drive.
type controller interface {
	Pause()
	Resume()
	Cancel()
	SetDelay(d time.Duration)
	Delay() time.Duration
	Done() <-chan struct{}
}

var _ controller = (*sim.Engine)(nil)

// readControls applies one command per input line until the input ends or
// the run terminates:
//
//	p  pause      r  resume
//	+  faster     -  slower
//	q  stop the run
func readControls(c controller, in io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-c.Done():
				return
			}
		}
	}()
	for {
		// a "q" must win over input still buffered behind it
		select {
		case <-c.Done():
			return
		default:
		}
		select {
		case <-c.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			applyControl(c, line)
		}
	}
}

func applyControl(c controller, cmd string) {
	switch cmd {
	case "":
	case "p":
		c.Pause()
		logrus.Info("paused")
	case "r":
		c.Resume()
		logrus.Info("resumed")
	case "+":
		c.SetDelay(c.Delay() / 2)
		logrus.Infof("delay now %v", c.Delay())
	case "-":
		d := c.Delay() * 2
		if d < speedStep {
			d = speedStep
		}
		c.SetDelay(d)
		logrus.Infof("delay now %v", c.Delay())
	case "q":
		c.Cancel()
	default:
		logrus.Warnf("unknown control %q (use p, r, +, -, q)", cmd)
	}
}
