package booking

import (
	"encoding/json"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/shopspring/decimal"
)

type Booking struct {
	ID              string          `json:"id"`
	StallID         string          `json:"stallId"`
	StallName       string          `json:"stallName,omitempty"`
	VendorName      string          `json:"vendorName"`
	VendorPhone     string          `json:"vendorPhone"`
	VendorEmail     string          `json:"vendorEmail,omitempty"`
	StartDate       time.Time       `json:"startDate"`
	EndDate         time.Time       `json:"endDate"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	Status          Status          `json:"status"`
	PaymentProofRef string          `json:"paymentProofRef,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (b Booking) Range() DateRange {
	return DateRange{Start: Day(b.StartDate), End: Day(b.EndDate)}
}

// MarshalJSON writes dates as YYYY-MM-DD and the total with two decimals.
func (b Booking) MarshalJSON() ([]byte, error) {
	type alias Booking
	return json.Marshal(struct {
		alias
		StartDate  string `json:"startDate"`
		EndDate    string `json:"endDate"`
		TotalPrice string `json:"totalPrice"`
	}{
		alias:      alias(b),
		StartDate:  b.StartDate.Format(DateFormat),
		EndDate:    b.EndDate.Format(DateFormat),
		TotalPrice: b.TotalPrice.StringFixed(2),
	})
}

// Request is what a vendor submits to reserve a stall.
type Request struct {
	StallID     string `json:"stallId"`
	VendorName  string `json:"vendorName"`
	VendorPhone string `json:"vendorPhone"`
	VendorEmail string `json:"vendorEmail,omitempty"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 \-()]{5,19}$`)

func (r Request) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.StallID, validation.Required, is.UUID),
		validation.Field(&r.VendorName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.VendorPhone, validation.Required, validation.Match(phonePattern).Error("must be a valid phone number")),
		validation.Field(&r.VendorEmail, is.Email),
		validation.Field(&r.StartDate, validation.Required, validation.Date(DateFormat)),
		validation.Field(&r.EndDate, validation.Required, validation.Date(DateFormat)),
	)
}

type Filter struct {
	Status  *Status
	StallID string
	Limit   int
}

// Occupancy is a stall's state on one day as shown in the public listing.
type Occupancy string

const (
	OccupancyAvailable Occupancy = "available"
	OccupancyOccupied  Occupancy = "occupied"
	OccupancyPending   Occupancy = "pending"
)

// occupancyOf folds the live bookings touching a day into one listing state.
// Occupying bookings win over ones still awaiting a decision.
func occupancyOf(bookings []Booking) Occupancy {
	out := OccupancyAvailable
	for _, b := range bookings {
		switch b.Status {
		case StatusApproved, StatusPaid:
			return OccupancyOccupied
		case StatusPending, StatusPendingVerification:
			out = OccupancyPending
		}
	}
	return out
}
