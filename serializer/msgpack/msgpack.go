// Package msgpack provides a MessagePack serializer for short-link events.
//
// MessagePack is a binary format that produces smaller payloads than JSON.
// Select it with the event_log.encoding setting, or pass it to the service
// directly:
//
//	svc := shortener.New(memory.NewEventLog(),
//		shortener.WithSerializer(msgpack.NewSerializer()))
package msgpack

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	shortener "github.com/vsavik/url-shortener"
)

var (
	_ shortener.Serializer = (*Serializer)(nil)
	_ shortener.Registrar  = (*Serializer)(nil)
)

// Serializer is a MessagePack implementation of shortener.Serializer.
type Serializer struct {
	mu       sync.RWMutex
	registry map[string]reflect.Type
}

// NewSerializer creates a Serializer with the short-link events registered.
func NewSerializer() *Serializer {
	s := &Serializer{
		registry: make(map[string]reflect.Type),
	}
	shortener.RegisterLinkEvents(s)
	return s
}

// Register adds a mapping from eventType to the Go type of the example.
func (s *Serializer) Register(eventType string, example interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := reflect.TypeOf(example)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.registry[eventType] = t
}

// Lookup returns the Go type for the given event type name.
func (s *Serializer) Lookup(eventType string) (reflect.Type, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.registry[eventType]
	return t, ok
}

// Count returns the number of registered event types.
func (s *Serializer) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

// Serialize converts an event payload to MessagePack bytes.
func (s *Serializer) Serialize(event interface{}) ([]byte, error) {
	if event == nil {
		return nil, shortener.NewSerializationError("nil", "serialize", fmt.Errorf("event cannot be nil"))
	}

	data, err := msgpack.Marshal(event)
	if err != nil {
		return nil, shortener.NewSerializationError(reflect.TypeOf(event).Name(), "serialize", err)
	}

	return data, nil
}

// Deserialize converts MessagePack bytes back to an event payload.
// Unregistered types decode into a map[string]interface{}.
func (s *Serializer) Deserialize(data []byte, eventType string) (interface{}, error) {
	if len(data) == 0 {
		return nil, shortener.NewSerializationError(eventType, "deserialize", fmt.Errorf("data cannot be empty"))
	}

	t, ok := s.Lookup(eventType)
	if !ok {
		var result map[string]interface{}
		if err := msgpack.Unmarshal(data, &result); err != nil {
			return nil, shortener.NewSerializationError(eventType, "deserialize", err)
		}
		return result, nil
	}

	ptr := reflect.New(t)
	if err := msgpack.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, shortener.NewSerializationError(eventType, "deserialize", err)
	}

	return ptr.Elem().Interface(), nil
}
