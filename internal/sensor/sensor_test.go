package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReading(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected float64
		ok       bool
	}{
		{"plain number", "21.5", 21.5, true},
		{"integer", "24", 24, true},
		{"negative", "-3.5", -3.5, true},
		{"whitespace trimmed", "  22.0\n", 22, true},
		{"empty", "", 0, false},
		{"unknown placeholder", "unknown", 0, false},
		{"unavailable placeholder", "unavailable", 0, false},
		{"uppercase placeholder", "Unavailable", 0, false},
		{"none placeholder", "none", 0, false},
		{"null placeholder", "null", 0, false},
		{"nan placeholder", "NaN", 0, false},
		{"garbage", "warm-ish", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseReading(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestStaticSource(t *testing.T) {
	s := NewStaticSource()

	_, ok := s.Read("sensors/a")
	assert.False(t, ok)

	s.Set("sensors/a", 21.5)
	v, ok := s.Read("sensors/a")
	assert.True(t, ok)
	assert.Equal(t, 21.5, v)

	s.Unset("sensors/a")
	_, ok = s.Read("sensors/a")
	assert.False(t, ok)
}

type fakeSubscriber struct {
	handlers map[string]func(topic string, payload []byte)
}

func (f *fakeSubscriber) Subscribe(topic string, cb func(topic string, payload []byte)) error {
	if f.handlers == nil {
		f.handlers = make(map[string]func(string, []byte))
	}
	f.handlers[topic] = cb
	return nil
}

func (f *fakeSubscriber) deliver(topic string, payload string) {
	if cb, ok := f.handlers[topic]; ok {
		cb(topic, []byte(payload))
	}
}

func TestMQTTSource(t *testing.T) {
	sub := &fakeSubscriber{}
	src, err := NewMQTTSource(sub, []string{"sensors/study"})
	assert.NoError(t, err)

	_, ok := src.Read("sensors/study")
	assert.False(t, ok, "no reading before the first message")

	sub.deliver("sensors/study", "22.5")
	v, ok := src.Read("sensors/study")
	assert.True(t, ok)
	assert.Equal(t, 22.5, v)

	// A sensor reporting a placeholder forgets the stale value.
	sub.deliver("sensors/study", "unavailable")
	_, ok = src.Read("sensors/study")
	assert.False(t, ok)
}
