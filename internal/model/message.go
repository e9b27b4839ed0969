package model

// Message represents an archived inbox message.
// Timestamp is epoch milliseconds at the time the message was saved,
// not the time it was sent.
type Message struct {
	ID        int64  `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Content   string `json:"content"`
}

// ArchiveEvent types
const (
	EventArchived = "message_archived"
	EventRemoved  = "message_removed"
)

// ArchiveEvent is used for WebSocket archive change notifications
type ArchiveEvent struct {
	Type      string `json:"type"`
	ID        int64  `json:"id"`
	Timestamp int64  `json:"timestamp"`
}
