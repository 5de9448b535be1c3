// Package notify delivers one-time passwords to users.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ahmetcoskunkizilkaya/signup-service/internal/jobs"
)

// LogNotifier logs the code instead of sending it. Development only.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) SendOTP(ctx context.Context, email string, otp int) error {
	slog.WarnContext(ctx, "mock otp delivery", "action", "send_otp", "email", email, "otp", otp)
	return nil
}

// Enqueuer is the subset of *asynq.Client used by QueueNotifier.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueNotifier hands the code to the worker through an asynq queue.
type QueueNotifier struct {
	client Enqueuer
	ttl    time.Duration
}

func NewQueueNotifier(client Enqueuer, ttl time.Duration) *QueueNotifier {
	return &QueueNotifier{client: client, ttl: ttl}
}

func (n *QueueNotifier) SendOTP(ctx context.Context, email string, otp int) error {
	task, err := jobs.NewSendOTPTask(jobs.SendOTPPayload{Email: email, OTP: otp}, n.ttl)
	if err != nil {
		return err
	}
	info, err := n.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue otp mail: %w", err)
	}
	slog.DebugContext(ctx, "otp mail enqueued", "email", email, "task_id", info.ID, "queue", info.Queue)
	return nil
}
