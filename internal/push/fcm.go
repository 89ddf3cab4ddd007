// internal/push/fcm.go

package push

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMSender implements push delivery using Firebase Cloud Messaging
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender creates a new FCM sender from a credentials file
func NewFCMSender(ctx context.Context, credentialsPath string) (*FCMSender, error) {
	opt := option.WithCredentialsFile(credentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return &FCMSender{client: client}, nil
}

// Send delivers a single notification via FCM
func (s *FCMSender) Send(ctx context.Context, n *Notification) error {
	msg := &messaging.Message{
		Token: n.Token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority": "10",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: n.Title,
						Body:  n.Body,
					},
					ContentAvailable: true,
				},
			},
		},
	}

	response, err := s.client.Send(ctx, msg)
	if err != nil {
		log.Printf("Failed to send push notification: %v", err)
		return err
	}

	log.Printf("Successfully sent push notification: %s", response)
	return nil
}
