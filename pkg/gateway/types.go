package gateway

// MessageKind identifies the two inbound wire shapes.
type MessageKind string

const (
	// KindText is a generic peer message, surfaced to the caller and logged.
	KindText MessageKind = "text"
	// KindToolShare proposes a tool; it is classified and queued for
	// approval, never admitted directly.
	KindToolShare MessageKind = "tool_share"
)

// PeerMessage is the inbound wire payload. A payload with a non-empty name
// and source is a tool-share; a payload with a message is generic text.
type PeerMessage struct {
	Message string `json:"message,omitempty"`
	Name    string `json:"name,omitempty"`
	Source  string `json:"source,omitempty"`
}

// Kind classifies the payload shape.
func (m PeerMessage) Kind() MessageKind {
	if m.Name != "" && m.Source != "" {
		return KindToolShare
	}
	return KindText
}

// MessageResponse is the server response for a generic message.
type MessageResponse struct {
	Status   string `json:"status"`
	Received string `json:"received"`
}

// EventMessage is a server-initiated event pushed to websocket observers.
type EventMessage struct {
	Type      string      `json:"type,omitempty"`
	Event     string      `json:"event"`
	Seq       int64       `json:"seq,omitempty"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}
