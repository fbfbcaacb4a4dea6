package model

// StreamEventType tags a record on the turn event stream.
type StreamEventType string

const (
	StreamEventStatus StreamEventType = "status"
	StreamEventText   StreamEventType = "text"
	StreamEventDone   StreamEventType = "done"
)

// StreamDoneSentinel terminates the SSE stream after the done event.
const StreamDoneSentinel = "[DONE]"

// StreamEvent is one record in a turn's event stream. Content is set for
// status and text events; MessageCount only for the terminal done event.
type StreamEvent struct {
	Type         StreamEventType `json:"type"`
	Content      string          `json:"content,omitempty"`
	MessageCount int             `json:"message_count,omitempty"`
}

// StatusEvent builds a status record.
func StatusEvent(content string) StreamEvent {
	return StreamEvent{Type: StreamEventStatus, Content: content}
}

// TextEvent builds a text delta record.
func TextEvent(content string) StreamEvent {
	return StreamEvent{Type: StreamEventText, Content: content}
}

// DoneEvent builds the terminal record carrying the resulting message count.
func DoneEvent(messageCount int) StreamEvent {
	return StreamEvent{Type: StreamEventDone, MessageCount: messageCount}
}
