package sensor

// Subscriber is the piece of the MQTT client the source needs.
type Subscriber interface {
	Subscribe(topic string, cb func(topic string, payload []byte)) error
}

// MQTTSource caches the latest numeric reading per subscribed topic.
// The sensor reference is the topic itself. A topic that has not
// reported, or whose last payload was non-numeric, reads as unavailable.
type MQTTSource struct {
	cache *StaticSource
}

// NewMQTTSource subscribes to every reference and starts caching.
func NewMQTTSource(sub Subscriber, refs []string) (*MQTTSource, error) {
	s := &MQTTSource{cache: NewStaticSource()}
	for _, ref := range refs {
		if err := sub.Subscribe(ref, s.onMessage); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *MQTTSource) onMessage(topic string, payload []byte) {
	if v, ok := ParseReading(string(payload)); ok {
		s.cache.Set(topic, v)
		return
	}
	// The sensor went away or reported garbage; forget the old value so
	// the controller stops acting on it.
	s.cache.Unset(topic)
}

// Read implements Source.
func (s *MQTTSource) Read(ref string) (float64, bool) {
	return s.cache.Read(ref)
}
