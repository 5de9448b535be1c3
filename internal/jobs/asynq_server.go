package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// NewServer builds the asynq server and mux used by the worker process.
func NewServer(redisOpt asynq.RedisClientOpt, concurrency int, mailer Mailer) (*asynq.Server, *asynq.ServeMux) {
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueDefault: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			slog.Error("task failed", "action", task.Type(), "error", err)
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(TaskTypeSendOTP, HandleSendOTPTask(mailer))
	return srv, mux
}
