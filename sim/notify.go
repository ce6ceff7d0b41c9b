package sim

import (
	"sync"

	"github.com/gammazero/deque"
	"github.com/sirupsen/logrus"
)

// Observer receives notifications from a running Engine, typically to drive
// a live visualization. Calls arrive on a dedicated notifier goroutine, in
// the order the engine produced them, and never while an engine lock is held.
// The engine does not wait for them.
type Observer interface {
	Arrived(station string, now float64)
	Departed(station string, now float64)
	Progress(now, total float64)
	Ended(stats Statistics)
}

// NoticeKind tags a Notice.
type NoticeKind int

const (
	NoticeArrived NoticeKind = iota
	NoticeDeparted
	NoticeProgress
	NoticeEnded
)

// Notice is one queued notification.
type Notice struct {
	Kind    NoticeKind
	Station string
	Time    float64
	Total   float64     // NoticeProgress only
	Stats   *Statistics // NoticeEnded only
}

// notifier delivers notices to an Observer from its own goroutine so the
// simulation loop never blocks on a slow consumer.
type notifier struct {
	obs Observer

	mu      sync.Mutex
	cond    *sync.Cond
	pending deque.Deque[Notice]
	closed  bool
	done    chan struct{}
}

// newNotifier starts delivery to obs. done is closed once the notifier has
// been closed and its backlog delivered.
func newNotifier(obs Observer, done chan struct{}) *notifier {
	n := &notifier{obs: obs, done: done}
	n.cond = sync.NewCond(&n.mu)
	go n.loop()
	return n
}

// post enqueues a notice. Notices posted after close are dropped.
func (n *notifier) post(nt Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.pending.PushBack(nt)
	n.cond.Signal()
}

// close stops accepting notices. It does not wait: the backlog keeps being
// delivered in the background and done is closed when it is empty.
func (n *notifier) close() {
	n.mu.Lock()
	n.closed = true
	n.cond.Broadcast()
	n.mu.Unlock()
}

func (n *notifier) loop() {
	defer close(n.done)
	for {
		n.mu.Lock()
		for n.pending.Len() == 0 && !n.closed {
			n.cond.Wait()
		}
		if n.pending.Len() == 0 {
			n.mu.Unlock()
			return
		}
		nt := n.pending.PopFront()
		n.mu.Unlock()
		n.deliver(nt)
	}
}

func (n *notifier) deliver(nt Notice) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Warnf("observer panicked on notice %d: %v", nt.Kind, r)
		}
	}()
	switch nt.Kind {
	case NoticeArrived:
		n.obs.Arrived(nt.Station, nt.Time)
	case NoticeDeparted:
		n.obs.Departed(nt.Station, nt.Time)
	case NoticeProgress:
		n.obs.Progress(nt.Time, nt.Total)
	case NoticeEnded:
		if nt.Stats != nil {
			n.obs.Ended(*nt.Stats)
		}
	}
}
