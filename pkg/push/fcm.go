package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type FCMProvider struct {
	client *messaging.Client
}

func NewFCMProvider(credentialsFile string) (*FCMProvider, error) {
	ctx := context.Background()

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging client: %w", err)
	}

	return &FCMProvider{client: client}, nil
}

func (f *FCMProvider) SendNotification(ctx context.Context, request *NotificationRequest) (*NotificationResponse, error) {
	messageID, err := f.client.Send(ctx, toFCMMessage(request))
	if err != nil {
		return &NotificationResponse{Token: request.Token, Error: err.Error()}, err
	}
	return &NotificationResponse{MessageID: messageID, Success: true, Token: request.Token}, nil
}

// SendBulkNotifications fans a dispatch broadcast out in a single FCM batch.
// Per-token failures come back in the response slice, not as an error.
func (f *FCMProvider) SendBulkNotifications(ctx context.Context, requests []*NotificationRequest) ([]*NotificationResponse, error) {
	messages := make([]*messaging.Message, len(requests))
	for i, req := range requests {
		messages[i] = toFCMMessage(req)
	}

	batch, err := f.client.SendAll(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("fcm batch send: %w", err)
	}

	responses := make([]*NotificationResponse, len(requests))
	for i, item := range batch.Responses {
		resp := &NotificationResponse{Token: requests[i].Token}
		if item.Success {
			resp.MessageID = item.MessageID
			resp.Success = true
		} else if item.Error != nil {
			resp.Error = item.Error.Error()
		}
		responses[i] = resp
	}
	return responses, nil
}

func toFCMMessage(request *NotificationRequest) *messaging.Message {
	message := &messaging.Message{
		Token: request.Token,
		Data:  request.Data,
	}

	if request.Title != "" || request.Body != "" {
		message.Notification = &messaging.Notification{
			Title: request.Title,
			Body:  request.Body,
		}
	}

	// Offers must wake the driver app even when backgrounded.
	if request.Priority != "" || request.CollapseKey != "" {
		message.Android = &messaging.AndroidConfig{
			Priority:    request.Priority,
			CollapseKey: request.CollapseKey,
		}
	}

	return message
}
