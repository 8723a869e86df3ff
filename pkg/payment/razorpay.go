package payment

import (
	"context"
	"fmt"

	"github.com/razorpay/razorpay-go"
)

type RazorpayGateway struct {
	client *razorpay.Client
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{
		client: razorpay.NewClient(keyID, keySecret),
	}
}

func (r *RazorpayGateway) RefundPayment(ctx context.Context, request *RefundRequest) (*RefundResponse, error) {
	refundData := map[string]interface{}{
		"amount": int(request.Amount * 100), // paise
		"notes": map[string]interface{}{
			"reason": request.Reason,
		},
	}

	amount := int(request.Amount * 100)
	refund, err := r.client.Payment.Refund(request.TransactionID, amount, refundData, map[string]string{})
	if err != nil {
		return nil, fmt.Errorf("failed to create refund: %w", err)
	}

	return &RefundResponse{
		RefundID:  refund["id"].(string),
		Status:    refund["status"].(string),
		Amount:    float64(refund["amount"].(int)) / 100,
		Currency:  refund["currency"].(string),
		CreatedAt: int64(refund["created_at"].(int)),
	}, nil
}
