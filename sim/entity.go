// Defines the Entity (patient) that flows through stations, and the per-engine
// Population counters that replace process-wide static tallies.

package sim

import "github.com/sirupsen/logrus"

// Entity is one patient moving through the station network.
// It is created on arrival, stamped once on departure, folded into the
// Population aggregates and then dropped.
type Entity struct {
	ID            uint64   // Unique per engine, assigned in arrival order starting at 1
	ArrivalTime   float64  // Simulated time the entity entered the system
	DepartureTime *float64 // Set when the entity leaves the system; nil while inside
}

// Sojourn returns departure minus arrival, or 0 while the entity is still inside.
func (e *Entity) Sojourn() float64 {
	if e.DepartureTime == nil {
		return 0
	}
	return *e.DepartureTime - e.ArrivalTime
}

// Population tracks how many entities entered and left one simulation run.
type Population struct {
	created      uint64
	completed    uint64
	totalSojourn float64
}

// Admit creates a new entity arriving at now.
func (p *Population) Admit(now float64) *Entity {
	p.created++
	e := &Entity{ID: p.created, ArrivalTime: now}
	logrus.Debugf("entity #%d arrived at %.4f", e.ID, now)
	return e
}

// Discharge stamps the departure time and folds the sojourn into the aggregates.
// Discharging an entity twice is ignored.
func (p *Population) Discharge(e *Entity, now float64) {
	if e.DepartureTime != nil {
		logrus.Warnf("entity #%d discharged twice; ignoring", e.ID)
		return
	}
	departed := now
	e.DepartureTime = &departed
	p.completed++
	p.totalSojourn += e.Sojourn()
	logrus.Debugf("entity #%d left at %.4f after %.4f time units", e.ID, now, e.Sojourn())
}

// Created returns the number of entities admitted so far.
func (p *Population) Created() uint64 { return p.created }

// Completed returns the number of entities discharged so far.
func (p *Population) Completed() uint64 { return p.completed }

// TotalSojourn returns the cumulative sojourn time of discharged entities.
func (p *Population) TotalSojourn() float64 { return p.totalSojourn }

// AverageSojourn returns TotalSojourn/Completed, or 0 when nothing has completed.
func (p *Population) AverageSojourn() float64 {
	if p.completed == 0 {
		return 0
	}
	return p.totalSojourn / float64(p.completed)
}
