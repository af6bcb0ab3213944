package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"

	"github.com/aurumlab/goldcore/pkg/errors"
)

// OrderRequest describes a single mutating request sent to the venue. The ID
// correlates the request with its log lines and venue response.
type OrderRequest struct {
	ID        string    `yaml:"id" json:"id" validate:"required,uuid"`
	Symbol    string    `yaml:"symbol" json:"symbol" validate:"required"`
	Direction Direction `yaml:"direction" json:"direction" validate:"required,oneof=buy sell"`
	Volume    float64   `yaml:"volume" json:"volume" validate:"required,gt=0"`
	// Price is the resting price for pending orders. None means a market order.
	Price optional.Option[float64] `yaml:"price" json:"price"`
	// PendingType must be set iff Price is set.
	PendingType optional.Option[PendingType] `yaml:"pending_type" json:"pending_type"`
	// StopLoss is the protective stop. None means no stop is attached.
	StopLoss optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	// TakeProfit is the target. None means no target is attached.
	TakeProfit optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
	// Magic is the ownership tag stamped on the resulting position/order.
	Magic   int64  `yaml:"magic" json:"magic" validate:"required,gt=0"`
	Comment string `yaml:"comment" json:"comment"`
}

// IsPending reports whether the request places a resting order.
func (r *OrderRequest) IsPending() bool {
	return r.Price.IsSome()
}

// Validate validates the OrderRequest struct.
func (r *OrderRequest) Validate() error {
	validate := validator.New()

	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrderRequest, "invalid order request", err)
	}

	if r.Price.IsSome() != r.PendingType.IsSome() {
		return errors.New(errors.ErrCodeInvalidOrderRequest,
			"pending price and pending type must be set together")
	}

	if r.Price.IsSome() && r.Price.Unwrap() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPrice, "pending price must be positive, got %f", r.Price.Unwrap())
	}

	if r.StopLoss.IsSome() && r.StopLoss.Unwrap() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidStops, "stop loss must be positive, got %f", r.StopLoss.Unwrap())
	}

	if r.TakeProfit.IsSome() && r.TakeProfit.Unwrap() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidStops, "take profit must be positive, got %f", r.TakeProfit.Unwrap())
	}

	return nil
}
