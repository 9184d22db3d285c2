package shortener

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/vsavik/url-shortener/adapters"
)

// Serializer handles event payload serialization and deserialization.
type Serializer interface {
	// Serialize converts an event payload to bytes.
	Serialize(event interface{}) ([]byte, error)

	// Deserialize converts bytes back to an event payload.
	// The eventType is used to determine the target type.
	Deserialize(data []byte, eventType string) (interface{}, error)
}

// Registrar is implemented by serializers that keep a type registry.
type Registrar interface {
	Register(eventType string, example interface{})
}

// RegisterLinkEvents registers the short-link event payloads under their kinds.
func RegisterLinkEvents(r Registrar) {
	r.Register(string(KindLinkCreated), LinkCreated{})
	r.Register(string(KindLinkRedirected), LinkRedirected{})
}

// EventRegistry maps event type names to Go types.
type EventRegistry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewEventRegistry creates a new empty EventRegistry.
func NewEventRegistry() *EventRegistry {
	return &EventRegistry{
		types: make(map[string]reflect.Type),
	}
}

// Register adds a mapping from eventType to the Go type of the example.
func (r *EventRegistry) Register(eventType string, example interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := reflect.TypeOf(example)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	r.types[eventType] = t
}

// Lookup returns the Go type for the given event type name.
func (r *EventRegistry) Lookup(eventType string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[eventType]
	return t, ok
}

// Count returns the number of registered event types.
func (r *EventRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// JSONSerializer is the default Serializer implementation using JSON encoding.
type JSONSerializer struct {
	registry *EventRegistry
}

// NewJSONSerializer creates a JSONSerializer with the short-link events registered.
func NewJSONSerializer() *JSONSerializer {
	s := &JSONSerializer{registry: NewEventRegistry()}
	RegisterLinkEvents(s)
	return s
}

// Register adds an event type to the serializer's registry.
func (s *JSONSerializer) Register(eventType string, example interface{}) {
	s.registry.Register(eventType, example)
}

// Registry returns the underlying EventRegistry.
func (s *JSONSerializer) Registry() *EventRegistry {
	return s.registry
}

// Serialize converts an event payload to JSON bytes.
func (s *JSONSerializer) Serialize(event interface{}) ([]byte, error) {
	if event == nil {
		return nil, NewSerializationError("nil", "serialize", fmt.Errorf("event cannot be nil"))
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, NewSerializationError(reflect.TypeOf(event).Name(), "serialize", err)
	}

	return data, nil
}

// Deserialize converts JSON bytes back to an event payload.
// Unregistered types decode into a map[string]interface{}.
func (s *JSONSerializer) Deserialize(data []byte, eventType string) (interface{}, error) {
	if len(data) == 0 {
		return nil, NewSerializationError(eventType, "deserialize", fmt.Errorf("data cannot be empty"))
	}

	t, ok := s.registry.Lookup(eventType)
	if !ok {
		var result map[string]interface{}
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, NewSerializationError(eventType, "deserialize", err)
		}
		return result, nil
	}

	ptr := reflect.New(t)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, NewSerializationError(eventType, "deserialize", err)
	}

	return ptr.Elem().Interface(), nil
}

// encodeEvent serializes a domain event into a log record.
func encodeEvent(serializer Serializer, event Event) (adapters.EventRecord, error) {
	kind := event.Kind()
	if kind == "" {
		return adapters.EventRecord{}, fmt.Errorf("%w: %T", ErrUnknownEventType, event.Data)
	}

	data, err := serializer.Serialize(event.Data)
	if err != nil {
		return adapters.EventRecord{}, err
	}

	return adapters.EventRecord{
		Type:     string(kind),
		Data:     data,
		Metadata: event.Metadata,
	}, nil
}

// decodeEvent deserializes a stored log record into a domain event.
func decodeEvent(serializer Serializer, stored adapters.StoredEvent) (Event, error) {
	data, err := serializer.Deserialize(stored.Data, stored.Type)
	if err != nil {
		return Event{}, err
	}

	return eventFromStored(stored, data), nil
}
