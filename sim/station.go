package sim

import (
	"github.com/gammazero/deque"
	"github.com/sirupsen/logrus"
)

// Sampler produces non-negative durations (service or inter-arrival times).
// Implementations live in sim/distribution.
type Sampler interface {
	Sample() float64
}

// Station is a service point: a FIFO queue of waiting entities and a single
// server modeled by a busy flag.
//
// busy is set by StartService and cleared by the next Dequeue, which happens
// when the completion event is processed. While busy there is exactly one
// completion event for this station in the EventList.
type Station struct {
	name    string
	queue   deque.Deque[*Entity]
	busy    bool
	sampler Sampler
	kind    EventKind // kind of the completion event this station schedules
	clock   *Clock
	events  *EventList
	notify  func(Notice)

	busySince float64
	busyTime  float64
	served    int
}

// NewStation creates an idle station whose completions are scheduled as kind.
func NewStation(name string, sampler Sampler, kind EventKind, clock *Clock, events *EventList) *Station {
	return &Station{
		name:    name,
		sampler: sampler,
		kind:    kind,
		clock:   clock,
		events:  events,
	}
}

// Name returns the station name.
func (s *Station) Name() string { return s.name }

// CompletionKind returns the event kind scheduled when service starts.
func (s *Station) CompletionKind() EventKind { return s.kind }

// Enqueue appends e to the tail of the queue. Busy state is unchanged.
func (s *Station) Enqueue(e *Entity) {
	s.queue.PushBack(e)
	s.post(NoticeArrived)
}

// Dequeue removes the entity at the head of the queue and frees the server.
func (s *Station) Dequeue() (*Entity, error) {
	if s.queue.Len() == 0 {
		return nil, ErrEmptyQueue
	}
	e := s.queue.PopFront()
	if s.busy {
		s.busyTime += s.clock.Now() - s.busySince
		s.served++
	}
	s.busy = false
	s.post(NoticeDeparted)
	return e, nil
}

// StartService begins serving the head of the queue: marks the station busy,
// samples a service time and schedules the completion event.
// It does nothing when the queue is empty or the station is already busy.
func (s *Station) StartService() {
	if s.queue.Len() == 0 {
		return
	}
	if s.busy {
		logrus.Warnf("station %s: StartService while busy; ignoring", s.name)
		return
	}
	now := s.clock.Now()
	s.busy = true
	s.busySince = now
	duration := s.sampler.Sample()
	logrus.Debugf("station %s: serving entity #%d for %.4f", s.name, s.queue.Front().ID, duration)
	s.events.Schedule(s.kind, now+duration)
}

// IsBusy reports whether the server is occupied.
func (s *Station) IsBusy() bool { return s.busy }

// HasQueue reports whether any entity is waiting or in service.
func (s *Station) HasQueue() bool { return s.queue.Len() > 0 }

// Len returns the number of entities at the station, including the one in service.
func (s *Station) Len() int { return s.queue.Len() }

// Served returns the number of completed services.
func (s *Station) Served() int { return s.served }

// BusyTime returns the accumulated busy time up to now, counting an
// in-progress service up to now.
func (s *Station) BusyTime(now float64) float64 {
	if s.busy && now > s.busySince {
		return s.busyTime + now - s.busySince
	}
	return s.busyTime
}

func (s *Station) post(kind NoticeKind) {
	if s.notify == nil {
		return
	}
	s.notify(Notice{Kind: kind, Station: s.name, Time: s.clock.Now()})
}
