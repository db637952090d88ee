// Package sensor provides external temperature readings for zones whose
// actuator has no thermostat of its own. A reading is addressed by an
// opaque reference; what the reference means depends on the source (for
// the MQTT source it is a topic).
package sensor

import (
	"strconv"
	"strings"
	"sync"
)

// Source supplies the latest reading for a sensor reference. The second
// return is false when the sensor is missing, has not reported yet, or
// last reported something non-numeric.
type Source interface {
	Read(ref string) (float64, bool)
}

// StaticSource is a fixed in-memory source, used in tests and as a
// building block for composed sources.
type StaticSource struct {
	mu       sync.RWMutex
	readings map[string]float64
}

// NewStaticSource creates an empty static source.
func NewStaticSource() *StaticSource {
	return &StaticSource{readings: make(map[string]float64)}
}

// Set stores a reading for a reference.
func (s *StaticSource) Set(ref string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings[ref] = value
}

// Unset removes a reading, making the reference unavailable.
func (s *StaticSource) Unset(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.readings, ref)
}

// Read implements Source.
func (s *StaticSource) Read(ref string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.readings[ref]
	return v, ok
}

// ParseReading converts a raw sensor payload into a temperature.
// Platform placeholder states ("unknown", "unavailable", "none") and
// anything non-numeric count as no reading.
func ParseReading(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "", "unknown", "unavailable", "none", "null", "nan":
		return 0, false
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
