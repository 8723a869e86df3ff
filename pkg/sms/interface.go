// Package sms abstracts the text-message gateways used to reach drivers and
// customers who are offline or have push notifications disabled. Dispatch
// offers and handoff codes go out as transactional messages.
package sms

import "context"

const (
	TypeTransactional = "transactional"
	TypeOTP           = "otp"
)

// SMSProvider is implemented by the Twilio and AWS SNS backends. SendBulkSMS
// exists for broadcast offers that fan out to many drivers at once; providers
// without a native bulk API loop over SendSMS.
type SMSProvider interface {
	SendSMS(ctx context.Context, request *SMSRequest) (*SMSResponse, error)
	SendBulkSMS(ctx context.Context, requests []*SMSRequest) ([]*SMSResponse, error)
}

type SMSRequest struct {
	To      string `json:"to"`
	From    string `json:"from"` // optional, provider default when empty
	Message string `json:"message"`
	Type    string `json:"type"`
}

type SMSResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}
