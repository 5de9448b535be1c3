package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue OTP mail tasks are published to.
	QueueDefault = "default"
	// TaskTypeSendOTP is the task type for delivering verification codes.
	TaskTypeSendOTP = "mail:otp"
)

// SendOTPPayload describes a verification code to deliver.
type SendOTPPayload struct {
	Email string `json:"email"`
	OTP   int    `json:"otp"`
}

// NewSendOTPTask constructs an Asynq task. A code is only useful for a few
// minutes, so the task is not retried past its deadline.
func NewSendOTPTask(payload SendOTPPayload, ttl time.Duration) (*asynq.Task, error) {
	if payload.Email == "" {
		return nil, fmt.Errorf("send otp task: email is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendOTP, data,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
		asynq.Deadline(time.Now().Add(ttl)),
	), nil
}

// Mailer delivers a rendered message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) Send(ctx context.Context, to, subject, body string) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "mail sent", "to", to, "subject", subject, "body", body)
	return nil
}

// HandleSendOTPTask returns the asynq handler for TaskTypeSendOTP tasks.
func HandleSendOTPTask(mailer Mailer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendOTPPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
		if payload.Email == "" {
			return fmt.Errorf("empty recipient: %w", asynq.SkipRetry)
		}
		subject, body := RenderOTPMail(payload.OTP)
		return mailer.Send(ctx, payload.Email, subject, body)
	}
}

func RenderOTPMail(otp int) (subject, body string) {
	subject = "Your verification code"
	body = fmt.Sprintf("Your verification code is %06d. Enter it to finish creating your account.", otp)
	return subject, body
}
