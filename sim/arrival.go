package sim

// ArrivalProcess feeds new entities into the system. Each call to
// GenerateNext schedules one arrival event; the handler for that event calls
// GenerateNext again, so the chain never ends on its own and the run is
// bounded only by the engine's duration.
type ArrivalProcess struct {
	sampler Sampler
	kind    EventKind
	clock   *Clock
	events  *EventList
}

// NewArrivalProcess creates an arrival process scheduling events of kind.
func NewArrivalProcess(sampler Sampler, kind EventKind, clock *Clock, events *EventList) *ArrivalProcess {
	return &ArrivalProcess{sampler: sampler, kind: kind, clock: clock, events: events}
}

// Kind returns the event kind of the scheduled arrivals.
func (a *ArrivalProcess) Kind() EventKind { return a.kind }

// GenerateNext schedules the next arrival at now + sample.
func (a *ArrivalProcess) GenerateNext() {
	a.events.Schedule(a.kind, a.clock.Now()+a.sampler.Sample())
}
