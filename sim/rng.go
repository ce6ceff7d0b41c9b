package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey is the master seed of a run. Equal keys over an equal
// network yield equal Statistics.
type SimulationKey int64

// NewSimulationKey wraps seed as a SimulationKey.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// Random stream names. Arrivals draw from the master seed itself; the router
// and each station get a stream of their own.
const (
	SubsystemArrival = "arrival"
	SubsystemRouter  = "router"

	stationPrefix = "station_"
)

// SubsystemStation names the service-time stream of a station.
func SubsystemStation(name string) string {
	return stationPrefix + name
}

// PartitionedRNG gives every consumer of randomness in a run (the arrival
// process, the router, each station) a private *rand.Rand. A station's
// service times therefore depend only on the key and its own name: adding a
// lab to the network, or routing more patients to x-ray, leaves the doctor's
// draws untouched.
//
// Streams other than SubsystemArrival are seeded with key ^ fnv1a64(name).
// Owned by the simulation goroutine.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG returns a PartitionedRNG with no streams created yet.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, streams: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the stream for name, creating it on first use.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.streams[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.seedFor(name)))
	p.streams[name] = rng
	return rng
}

// Key returns the master seed.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func (p *PartitionedRNG) seedFor(name string) int64 {
	if name == SubsystemArrival {
		return int64(p.key)
	}
	return int64(p.key) ^ fnv1a64(name)
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
