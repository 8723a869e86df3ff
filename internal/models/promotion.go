package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PromotionType string

const (
	PromotionTypePercentage PromotionType = "percentage"
	PromotionTypeFlat       PromotionType = "flat"
)

type Promotion struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Code           string             `json:"code" bson:"code" validate:"required"`
	Title          string             `json:"title" bson:"title"`
	Type           PromotionType      `json:"type" bson:"type" validate:"required"`
	DiscountValue  float64            `json:"discount_value" bson:"discount_value" validate:"required"`
	MaxDiscount    float64            `json:"max_discount" bson:"max_discount"`
	MinOrderAmount float64            `json:"min_order_amount" bson:"min_order_amount"`
	IsActive       bool               `json:"is_active" bson:"is_active" default:"true"`
	ValidFrom      time.Time          `json:"valid_from" bson:"valid_from"`
	ValidUntil     time.Time          `json:"valid_until" bson:"valid_until"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}

// DiscountFor returns the discount applicable to subtotal, zero when the
// promotion does not apply.
func (p *Promotion) DiscountFor(subtotal float64, at time.Time) float64 {
	if !p.IsActive || at.Before(p.ValidFrom) || at.After(p.ValidUntil) {
		return 0
	}
	if subtotal < p.MinOrderAmount {
		return 0
	}

	var discount float64
	switch p.Type {
	case PromotionTypePercentage:
		discount = subtotal * p.DiscountValue / 100
	case PromotionTypeFlat:
		discount = p.DiscountValue
	}

	if p.MaxDiscount > 0 && discount > p.MaxDiscount {
		discount = p.MaxDiscount
	}
	if discount > subtotal {
		discount = subtotal
	}

	return discount
}
