package network

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Results is the aggregate record of one completed run, handed to a ResultsSink.
type Results struct {
	RunID          uuid.UUID                 `json:"run_id"`
	RecordedAt     time.Time                 `json:"recorded_at"`
	Seed           int64                     `json:"seed"`
	TotalArrived   uint64                    `json:"total_arrived"`
	Completed      uint64                    `json:"completed"`
	AverageSojourn float64                   `json:"average_sojourn"`
	EndTime        float64                   `json:"end_time"`
	Cancelled      bool                      `json:"cancelled,omitempty"`
	Probabilities  map[string]float64        `json:"probabilities"` // "<decision>.<branch>" → probability used
	MeanTimes      map[string]float64        `json:"mean_times"`    // station or "arrival" → mean used
	Utilization    map[string]float64        `json:"utilization"`   // station → busy time / end time
	Routed         map[string]map[string]int `json:"routed"`        // station → destination ("exit" when leaving) → count
}

// ExitDestination is the Routed key for entities leaving the system.
const ExitDestination = "exit"

// ResultsSink stores run results. Implementations must be safe for
// concurrent use.
type ResultsSink interface {
	Save(r Results) error
}

// MemorySink keeps a results history in memory.
type MemorySink struct {
	mu      sync.Mutex
	history []Results
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Save implements ResultsSink.
func (m *MemorySink) Save(r Results) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, r)
	return nil
}

// All returns a copy of every saved record in save order.
func (m *MemorySink) All() []Results {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Results(nil), m.history...)
}

// Last returns the most recent record.
func (m *MemorySink) Last() (Results, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) == 0 {
		return Results{}, false
	}
	return m.history[len(m.history)-1], true
}

// JSONLinesSink appends one JSON object per run to a file.
type JSONLinesSink struct {
	mu   sync.Mutex
	path string
}

// NewJSONLinesSink creates a sink writing to path. The file is created on first Save.
func NewJSONLinesSink(path string) *JSONLinesSink {
	return &JSONLinesSink{path: path}
}

// Save implements ResultsSink.
func (s *JSONLinesSink) Save(r Results) error {
	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening results file: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing results file: %w", err)
	}
	return f.Close()
}
