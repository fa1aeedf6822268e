package booking

import "github.com/shopspring/decimal"

// ComputePrice is pricePerDay times the inclusive day count of r.
func ComputePrice(pricePerDay decimal.Decimal, r DateRange) decimal.Decimal {
	return pricePerDay.Mul(decimal.NewFromInt(int64(r.Days())))
}
