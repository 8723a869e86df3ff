package push

import (
	"context"
	"fmt"
	"time"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/token"
)

type APNSProvider struct {
	client *apns2.Client
	topic  string
}

func NewAPNSProvider(keyFile, keyID, teamID, topic string, production bool) (*APNSProvider, error) {
	authKey, err := token.AuthKeyFromFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("apns auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   keyID,
		TeamID:  teamID,
	})
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNSProvider{client: client, topic: topic}, nil
}

func (a *APNSProvider) SendNotification(ctx context.Context, request *NotificationRequest) (*NotificationResponse, error) {
	response, err := a.client.PushWithContext(ctx, a.toNotification(request))
	if err != nil {
		return &NotificationResponse{Token: request.Token, Error: err.Error()}, err
	}
	if !response.Sent() {
		return &NotificationResponse{Token: request.Token, Error: response.Reason},
			fmt.Errorf("apns rejected: %s", response.Reason)
	}
	return &NotificationResponse{MessageID: response.ApnsID, Success: true, Token: request.Token}, nil
}

// SendBulkNotifications loops over PushWithContext; apns2 keeps one HTTP/2
// connection open so sequential sends are cheap.
func (a *APNSProvider) SendBulkNotifications(ctx context.Context, requests []*NotificationRequest) ([]*NotificationResponse, error) {
	responses := make([]*NotificationResponse, len(requests))
	for i, req := range requests {
		resp, err := a.SendNotification(ctx, req)
		if err != nil && resp == nil {
			resp = &NotificationResponse{Token: req.Token, Error: err.Error()}
		}
		responses[i] = resp
	}
	return responses, nil
}

func (a *APNSProvider) toNotification(request *NotificationRequest) *apns2.Notification {
	aps := map[string]interface{}{}
	if request.Title != "" || request.Body != "" {
		aps["alert"] = map[string]interface{}{"title": request.Title, "body": request.Body}
	}
	if request.Sound != "" {
		aps["sound"] = request.Sound
	}
	if request.Badge > 0 {
		aps["badge"] = request.Badge
	}

	payload := map[string]interface{}{"aps": aps}
	for key, value := range request.Data {
		payload[key] = value
	}

	notification := &apns2.Notification{
		DeviceToken: request.Token,
		Topic:       a.topic,
		Payload:     payload,
	}
	if request.Priority == "high" {
		notification.Priority = apns2.PriorityHigh
	} else {
		notification.Priority = apns2.PriorityLow
	}
	if request.TTL > 0 {
		notification.Expiration = time.Now().Add(time.Duration(request.TTL) * time.Second)
	}
	if request.CollapseKey != "" {
		notification.CollapseID = request.CollapseKey
	}
	return notification
}
