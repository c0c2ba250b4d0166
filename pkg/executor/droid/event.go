package droid

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event is one decoded line of Droid stdout. Any variant may carry a session id.
type Event struct {
	SessionID string
	Type      EventType
	Payload   Payload

	// Raw is the decoded JSON object, archived verbatim.
	Raw map[string]any
	// Size is the serialized byte length of Raw, used for archive accounting.
	Size int
}

// Payload is the closed set of event variants the aggregator reacts to.
type Payload interface {
	payload()
}

// SessionAnnounce is a recognized event that only contributes a session id
// (system events and anything else carrying session_id without text).
type SessionAnnounce struct{}

// ErrorEvent is an agent-reported failure. Message is empty when the event
// carried no message field.
type ErrorEvent struct {
	Message string
}

// CompletionEvent carries the final response text.
type CompletionEvent struct {
	Text string
}

// AssistantMessage carries intermediate assistant text.
type AssistantMessage struct {
	Text string
}

// Unrecognized is archived but contributes nothing else.
type Unrecognized struct{}

func (SessionAnnounce) payload()  {}
func (ErrorEvent) payload()       {}
func (CompletionEvent) payload()  {}
func (AssistantMessage) payload() {}
func (Unrecognized) payload()     {}

var errNotObject = errors.New("stream line is not a JSON object")

// DecodeEvent parses one stdout line into an Event. Lines that are not JSON
// objects are rejected.
func DecodeEvent(line []byte) (Event, error) {
	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		return Event{}, fmt.Errorf("decode stream line: %w", err)
	}
	if raw == nil {
		return Event{}, errNotObject
	}
	return classify(raw)
}

func classify(raw map[string]any) (Event, error) {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return Event{}, fmt.Errorf("encode stream event: %w", err)
	}

	evt := Event{
		SessionID: stringField(raw, "session_id"),
		Type:      EventType(stringField(raw, "type")),
		Raw:       raw,
		Size:      len(encoded),
	}

	switch evt.Type {
	case EventTypeError:
		evt.Payload = ErrorEvent{Message: stringField(raw, "message")}
	case EventTypeCompletion:
		if text, ok := raw["finalText"].(string); ok {
			evt.Payload = CompletionEvent{Text: text}
		}
	case EventTypeMessage:
		if stringField(raw, "role") == RoleAssistant {
			if text, ok := raw["text"].(string); ok {
				evt.Payload = AssistantMessage{Text: text}
			}
		}
	}

	if evt.Payload == nil {
		if evt.SessionID != "" {
			evt.Payload = SessionAnnounce{}
		} else {
			evt.Payload = Unrecognized{}
		}
	}
	return evt, nil
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

func boolField(raw map[string]any, key string) bool {
	b, _ := raw[key].(bool)
	return b
}
