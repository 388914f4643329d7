package model

// EventRequest represents an incoming event payload from the platform feed.
// The wire format nests kind-specific data under "user" and "object", except
// private messages, which carry their attributes at the top level.
type EventRequest struct {
	Method      string         `json:"method"`
	Room        string         `json:"room"`
	Broadcaster string         `json:"broadcaster"`
	Timestamp   int64          `json:"timestamp"`
	User        map[string]any `json:"user"`
	Object      map[string]any `json:"object"`
	FromUser    string         `json:"from_user"`
	ToUser      string         `json:"to_user"`
	Message     string         `json:"message"`
	Tokens      int            `json:"tokens"`
}
