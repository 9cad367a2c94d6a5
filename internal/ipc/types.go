package ipc

import "time"

// PingRequest checks daemon reachability.
type PingRequest struct{}

// PingResponse acknowledges a ping.
type PingResponse struct {
	PID int `json:"pid"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// WorkerStatus describes one background worker.
type WorkerStatus struct {
	Name   string `json:"name"`
	State  string `json:"state"`
	Detail string `json:"detail"`
}

// JournalStats summarizes journaled device traffic.
type JournalStats struct {
	Total      int            `json:"total"`
	Failed     int            `json:"failed"`
	PerCommand map[string]int `json:"per_command"`
}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running         bool           `json:"running"`
	DevicePath      string         `json:"device_path"`
	DeviceAvailable bool           `json:"device_available"`
	LockPath        string         `json:"lock_path"`
	JournalPath     string         `json:"journal_path"`
	Workers         []WorkerStatus `json:"workers"`
	Journal         JournalStats   `json:"journal"`
	PID             int            `json:"pid"`
}

// SendRequest asks the daemon to deliver one manual command.
type SendRequest struct{}

// SendResponse reports a manual send outcome. A failed send is a
// normal response, not an RPC error.
type SendResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// EventsRequest fetches recent journal entries.
type EventsRequest struct {
	Limit int `json:"limit"`
}

// Event mirrors a journal entry for IPC callers.
type Event struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Command   string    `json:"command"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// EventsResponse contains journal entries, newest first.
type EventsResponse struct {
	Events []Event `json:"events"`
}
