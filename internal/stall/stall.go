package stall

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"
)

type Stall struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	PricePerDay decimal.Decimal `json:"pricePerDay"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// MarshalJSON writes the daily price with two decimals.
func (s Stall) MarshalJSON() ([]byte, error) {
	type alias Stall
	return json.Marshal(struct {
		alias
		PricePerDay string `json:"pricePerDay"`
	}{alias: alias(s), PricePerDay: s.PricePerDay.StringFixed(2)})
}

// MaxPricePerDay caps the daily price so booking totals fit NUMERIC(12,2).
var MaxPricePerDay = decimal.NewFromInt(1_000_000)

// Input is the admin-editable part of a stall.
type Input struct {
	Name        string          `json:"name"`
	PricePerDay decimal.Decimal `json:"pricePerDay"`
	Description string          `json:"description"`
}

func (in Input) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.PricePerDay, validation.By(positivePrice)),
		validation.Field(&in.Description, validation.Length(0, 1000)),
	)
}

func positivePrice(v any) error {
	d, ok := v.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal")
	}
	if !d.IsPositive() {
		return errors.New("must be greater than zero")
	}
	if d.GreaterThan(MaxPricePerDay) {
		return fmt.Errorf("must be at most %s", MaxPricePerDay.StringFixed(2))
	}
	if !d.Equal(d.Round(2)) {
		return errors.New("must have at most two decimal places")
	}
	return nil
}
