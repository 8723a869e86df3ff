package payment

import (
	"context"
)

// WalletGateway is the external ledger collaborator. The core computes the
// final fare; capture happens elsewhere. The only operation the dispatch core
// initiates itself is the refund credit on cancellation.
type WalletGateway interface {
	RefundPayment(ctx context.Context, request *RefundRequest) (*RefundResponse, error)
}

type RefundRequest struct {
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Reason        string  `json:"reason"`
}

type RefundResponse struct {
	RefundID  string  `json:"refund_id"`
	Status    string  `json:"status"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	CreatedAt int64   `json:"created_at"`
}
