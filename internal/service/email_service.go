package service

import (
	"context"
	"fmt"
	"log"

	"github.com/resend/resend-go/v2"

	"github.com/genasnewdar/lever-stg/internal/domain/entity"
)

// NoopCompletionNotifier используется, когда отправка писем отключена
type NoopCompletionNotifier struct{}

func (n *NoopCompletionNotifier) NotifyCourseCompleted(ctx context.Context, user *entity.User, course *entity.Course) error {
	log.Printf("[EmailService] noop: уведомление о завершении курса %s для %s", course.ID, user.ID)
	return nil
}

func (n *NoopCompletionNotifier) Enabled() bool { return false }

// ResendCompletionNotifier отправляет письмо о завершении курса через Resend
type ResendCompletionNotifier struct {
	from   string
	client *resend.Client
}

// NewResendCompletionNotifier создает отправителя писем
func NewResendCompletionNotifier(apiKey, from string) (*ResendCompletionNotifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendCompletionNotifier{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

func (n *ResendCompletionNotifier) Enabled() bool { return true }

// NotifyCourseCompleted отправляет поздравительное письмо ученику
func (n *ResendCompletionNotifier) NotifyCourseCompleted(ctx context.Context, user *entity.User, course *entity.Course) error {
	if user.Email == "" {
		return fmt.Errorf("user %s has no email", user.ID)
	}

	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{user.Email},
		Subject: fmt.Sprintf("Курс «%s» пройден", course.Title),
		Text: fmt.Sprintf("%s, поздравляем! Вы прошли все материалы курса «%s».",
			user.FullName, course.Title),
		Html: fmt.Sprintf("<p>%s, поздравляем!</p><p>Вы прошли все материалы курса <strong>%s</strong>.</p>",
			user.FullName, course.Title),
	}

	options := &resend.SendEmailOptions{
		// Одно письмо на пару (ученик, курс): повторный пересчет прогресса
		// не дублирует поздравление
		IdempotencyKey: fmt.Sprintf("course-completed/%s/%s", user.ID, course.ID),
	}

	_, err := n.client.Emails.SendWithOptions(ctx, params, options)
	if err != nil {
		return fmt.Errorf("failed to send completion email: %w", err)
	}
	return nil
}
