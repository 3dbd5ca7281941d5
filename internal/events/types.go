package events

import "time"

// EventType represents the type of event broadcast to clients
type EventType string

const (
	// EventTypeAnonymize represents a completed anonymization request
	EventTypeAnonymize EventType = "anonymize"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
)

// Event represents an event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// AnonymizeEvent describes one processed anonymization request. Original
// text and mapping keys are never put on the wire; counts only.
type AnonymizeEvent struct {
	RequestID    string  `json:"request_id"`
	ClientIP     string  `json:"client_ip"`
	Keywords     int     `json:"keywords"`
	Numbers      int     `json:"numbers"`
	TextBytes    int     `json:"text_bytes"`
	CacheHit     bool    `json:"cache_hit"`
	ProcessingMS float64 `json:"processing_ms"`
}

// ConnectionEvent represents client connection changes
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected", "disconnected"
	ClientID string `json:"client_id"`
	ClientIP string `json:"client_ip"`
}

// SystemStatusEvent represents periodic system status information
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	TotalRequests    int64  `json:"total_requests"`
	ConnectedClients int    `json:"connected_clients"`
}
