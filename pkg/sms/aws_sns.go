package sms

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snsTypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type AWSSNSProvider struct {
	client *sns.Client
}

func NewAWSSNSProvider(region string) (*AWSSNSProvider, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	return &AWSSNSProvider{client: sns.NewFromConfig(cfg)}, nil
}

// smsAttributes marks every message Transactional so carriers do not throttle
// dispatch offers and handoff codes the way they do promotional traffic.
func smsAttributes() map[string]snsTypes.MessageAttributeValue {
	return map[string]snsTypes.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
}

func (a *AWSSNSProvider) SendSMS(ctx context.Context, request *SMSRequest) (*SMSResponse, error) {
	resp, err := a.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(request.To),
		Message:           aws.String(request.Message),
		MessageAttributes: smsAttributes(),
	})
	if err != nil {
		return &SMSResponse{Status: "failed", Error: err.Error()}, fmt.Errorf("sns publish to %s: %w", request.To, err)
	}

	out := &SMSResponse{Status: "sent"}
	if resp.MessageId != nil {
		out.MessageID = *resp.MessageId
	}
	return out, nil
}

func (a *AWSSNSProvider) SendBulkSMS(ctx context.Context, requests []*SMSRequest) ([]*SMSResponse, error) {
	responses := make([]*SMSResponse, len(requests))
	for i, req := range requests {
		resp, err := a.SendSMS(ctx, req)
		if err != nil && resp == nil {
			resp = &SMSResponse{Status: "failed", Error: err.Error()}
		}
		responses[i] = resp
	}
	return responses, nil
}
