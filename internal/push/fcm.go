// Package push отправляет push-уведомления через Firebase Cloud Messaging.
package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Sender отправляет push-уведомление на устройство.
type Sender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// FCMSender отправляет уведомления через Firebase Admin SDK.
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender создаёт клиент FCM из файла сервисного аккаунта.
func NewFCMSender(ctx context.Context, credentialsFile string) (*FCMSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("push: инициализация firebase %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("push: инициализация messaging %w", err)
	}

	return &FCMSender{client: client}, nil
}

// Send отправляет уведомление на устройство по FCM токену.
func (s *FCMSender) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := s.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("push: отправка %w", err)
	}
	return nil
}

// NoopSender используется, когда FCM не настроен.
type NoopSender struct{}

func (NoopSender) Send(context.Context, string, string, string, map[string]string) error {
	return nil
}
