package realtime

import "github.com/google/uuid"

type SSEEvent string

const (
	SSEEventJobCreated     SSEEvent = "JobCreated"
	SSEEventJobProgress    SSEEvent = "JobProgress"
	SSEEventJobDone        SSEEvent = "JobDone"
	SSEEventJobFailed      SSEEvent = "JobFailed"
	SSEEventCreditsChanged SSEEvent = "CreditsChanged"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// UserChannel is the channel every client of userID subscribes to.
func UserChannel(userID uuid.UUID) string { return "user:" + userID.String() }

func DocumentChannel(documentID uuid.UUID) string { return "document:" + documentID.String() }
