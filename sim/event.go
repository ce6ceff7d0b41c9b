package sim

import (
	"cmp"
	"errors"
	"math"

	"github.com/addrummond/heap"
	"github.com/sirupsen/logrus"
)

// ErrEmptyQueue is returned when extracting from an empty EventList or Station queue.
// Callers guard with PeekMinTime or HasQueue, so seeing it indicates a model bug.
var ErrEmptyQueue = errors.New("empty queue")

// EventKind identifies the transition an event applies, e.g. "arrival" or
// "departure:doctor". The Engine dispatches on it.
type EventKind string

// Event is a scheduled, time-stamped transition. Events are values and are
// never modified after insertion.
type Event struct {
	Kind EventKind
	Time float64

	seq uint64 // insertion order, breaks ties between equal Times
}

// Cmp orders events by Time, then by insertion order (FIFO among equal timestamps).
func (e *Event) Cmp(other *Event) int {
	if c := cmp.Compare(e.Time, other.Time); c != 0 {
		return c
	}
	return cmp.Compare(e.seq, other.seq)
}

// EventList is the pending-event set of one simulation, ordered by time.
// Not safe for concurrent use; only the simulation goroutine touches it.
type EventList struct {
	events  heap.Heap[Event, heap.Min]
	size    int
	nextSeq uint64
}

// NewEventList returns an empty EventList.
func NewEventList() *EventList {
	return &EventList{}
}

// Insert schedules ev. O(log n).
func (l *EventList) Insert(ev Event) {
	ev.seq = l.nextSeq
	l.nextSeq++
	logrus.Tracef("event %s added at %.4f", ev.Kind, ev.Time)
	heap.PushOrderable(&l.events, ev)
	l.size++
}

// Schedule is shorthand for Insert(Event{Kind: kind, Time: at}).
func (l *EventList) Schedule(kind EventKind, at float64) {
	l.Insert(Event{Kind: kind, Time: at})
}

// ExtractMin removes and returns the earliest event.
func (l *EventList) ExtractMin() (Event, error) {
	ev, ok := heap.PopOrderable(&l.events)
	if !ok {
		return Event{}, ErrEmptyQueue
	}
	l.size--
	logrus.Tracef("event %s removed at %.4f", ev.Kind, ev.Time)
	return ev, nil
}

// PeekMinTime returns the time of the earliest event, or +Inf when the list
// is empty so the main loop can treat an empty list as "nothing due ever".
func (l *EventList) PeekMinTime() float64 {
	ev, ok := heap.Peek(&l.events)
	if !ok {
		return math.Inf(1)
	}
	return ev.Time
}

// Len returns the number of pending events.
func (l *EventList) Len() int {
	return l.size
}
