package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
	"github.com/yungbote/studydeck-backend/internal/realtime"
	"github.com/yungbote/studydeck-backend/internal/realtime/bus"
)

type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

// HubEmitter broadcasts to clients connected to this process.
type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	if e == nil || e.Hub == nil {
		return
	}
	e.Hub.Broadcast(msg)
}

// BusEmitter publishes to every instance; each forwards into its own hub.
type BusEmitter struct {
	Bus bus.Bus
	Log *logger.Logger
}

func (e *BusEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	if e == nil || e.Bus == nil {
		return
	}
	if err := e.Bus.Publish(ctx, msg); err != nil && e.Log != nil {
		e.Log.Warn("publish SSE message failed", "event", msg.Event, "error", err)
	}
}

// JobNotifier pushes job lifecycle and credit changes to the owner's channel.
type JobNotifier interface {
	JobCreated(ctx context.Context, job *types.ProcessingJob)
	JobProgress(ctx context.Context, job *types.ProcessingJob, ev ProgressEvent)
	JobFailed(ctx context.Context, job *types.ProcessingJob, stage string, errorMessage string)
	JobDone(ctx context.Context, job *types.ProcessingJob)
	CreditsChanged(ctx context.Context, userID uuid.UUID, balance int)
}

type jobNotifier struct {
	emit SSEEmitter
}

func NewJobNotifier(emit SSEEmitter) JobNotifier {
	return &jobNotifier{emit: emit}
}

func (n *jobNotifier) send(ctx context.Context, userID uuid.UUID, event realtime.SSEEvent, data map[string]any) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{Channel: realtime.UserChannel(userID), Event: event, Data: data})
}

func (n *jobNotifier) JobCreated(ctx context.Context, job *types.ProcessingJob) {
	n.send(ctx, job.UserID, realtime.SSEEventJobCreated, map[string]any{"job": job})
}

func (n *jobNotifier) JobProgress(ctx context.Context, job *types.ProcessingJob, ev ProgressEvent) {
	n.send(ctx, job.UserID, realtime.SSEEventJobProgress, map[string]any{
		"job_id":      job.ID,
		"document_id": job.DocumentID,
		"kind":        job.Kind,
		"stage":       ev.Stage,
		"progress":    ev.Progress,
		"message":     ev.Message,
	})
}

func (n *jobNotifier) JobFailed(ctx context.Context, job *types.ProcessingJob, stage string, errorMessage string) {
	n.send(ctx, job.UserID, realtime.SSEEventJobFailed, map[string]any{
		"job_id":      job.ID,
		"document_id": job.DocumentID,
		"kind":        job.Kind,
		"stage":       stage,
		"error":       errorMessage,
	})
}

func (n *jobNotifier) JobDone(ctx context.Context, job *types.ProcessingJob) {
	n.send(ctx, job.UserID, realtime.SSEEventJobDone, map[string]any{
		"job_id":      job.ID,
		"document_id": job.DocumentID,
		"kind":        job.Kind,
		"job":         job,
	})
}

func (n *jobNotifier) CreditsChanged(ctx context.Context, userID uuid.UUID, balance int) {
	n.send(ctx, userID, realtime.SSEEventCreditsChanged, map[string]any{"balance": balance})
}
