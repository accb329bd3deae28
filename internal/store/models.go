package store

import (
	"time"

	"github.com/google/uuid"
)

// Task lifecycle states. done and fail are terminal.
const (
	TaskPending  = "pending"
	TaskRetrying = "retrying"
	TaskDone     = "done"
	TaskFail     = "fail"
)

const TransportTelegram = "telegram"

type User struct {
	ID            int64     `json:"id"`
	OpenID        uuid.UUID `json:"open_id"`
	ProjectID     string    `json:"project_id"`
	WalletAddress string    `json:"wallet_address"`
	CreationTime  time.Time `json:"creation_time"`
}

type Transport struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Type         string    `json:"type"`
	ChatID       *string   `json:"chat_id,omitempty"`
	Username     *string   `json:"username,omitempty"`
	Connected    bool      `json:"connected"`
	CreationTime time.Time `json:"creation_time"`
}

// Deliverable reports whether the transport can receive pushes.
func (t *Transport) Deliverable() bool {
	return t.Connected && t.ChatID != nil
}

type Message struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	CreationTime time.Time `json:"creation_time"`
}

// Task is one scheduled attempt to deliver one message through one
// transport. TransportType and ChatID are snapshots taken at enqueue time;
// rebinding a transport never alters in-flight work.
type Task struct {
	ID            int64     `json:"id"`
	MessageID     int64     `json:"message_id"`
	UserID        int64     `json:"user_id"`
	TransportID   int64     `json:"transport"`
	TransportType string    `json:"transport_type"`
	ChatID        string    `json:"chat_id"`
	State         string    `json:"state"`
	RetryCount    int       `json:"retry_count"`
	Reason        *string   `json:"reason,omitempty"`
	CreationTime  time.Time `json:"creation_time"`
}

type Token struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	CreationTime time.Time `json:"creation_time"`
}
