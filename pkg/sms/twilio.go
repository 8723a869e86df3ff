package sms

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

type TwilioProvider struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioProvider(accountSID, authToken, fromNumber string) *TwilioProvider {
	return &TwilioProvider{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from: fromNumber,
	}
}

func (t *TwilioProvider) SendSMS(ctx context.Context, request *SMSRequest) (*SMSResponse, error) {
	from := request.From
	if from == "" {
		from = t.from
	}

	params := &api.CreateMessageParams{}
	params.SetTo(request.To)
	params.SetFrom(from)
	params.SetBody(request.Message)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return &SMSResponse{Status: "failed", Error: err.Error()}, fmt.Errorf("twilio send to %s: %w", request.To, err)
	}

	out := &SMSResponse{}
	if resp.Sid != nil {
		out.MessageID = *resp.Sid
	}
	if resp.Status != nil {
		out.Status = *resp.Status
	}
	return out, nil
}

// SendBulkSMS loops; Twilio has no batch message API. A failed recipient does
// not stop the rest of the fan-out.
func (t *TwilioProvider) SendBulkSMS(ctx context.Context, requests []*SMSRequest) ([]*SMSResponse, error) {
	responses := make([]*SMSResponse, len(requests))
	for i, req := range requests {
		resp, err := t.SendSMS(ctx, req)
		if err != nil && resp == nil {
			resp = &SMSResponse{Status: "failed", Error: err.Error()}
		}
		responses[i] = resp
	}
	return responses, nil
}
