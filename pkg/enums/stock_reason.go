package enums

import "fmt"

// StockReason classifies every entry in the inventory transaction log.
type StockReason string

const (
	StockReasonRestock            StockReason = "restock"
	StockReasonSale               StockReason = "sale"
	StockReasonCancellation       StockReason = "cancellation"
	StockReasonAdjustment         StockReason = "adjustment"
	StockReasonReservationExpired StockReason = "reservation_expired"
)

var validStockReasons = []StockReason{
	StockReasonRestock,
	StockReasonSale,
	StockReasonCancellation,
	StockReasonAdjustment,
	StockReasonReservationExpired,
}

// String implements fmt.Stringer.
func (s StockReason) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockReason.
func (s StockReason) IsValid() bool {
	for _, candidate := range validStockReasons {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsReleaseReason reports whether the reason is allowed on a reservation release.
func (s StockReason) IsReleaseReason() bool {
	return s == StockReasonCancellation || s == StockReasonReservationExpired
}

// IsRestockReason reports whether the reason is allowed on a restock.
func (s StockReason) IsRestockReason() bool {
	return s == StockReasonRestock || s == StockReasonAdjustment
}

// ParseStockReason converts raw input into a StockReason.
func ParseStockReason(value string) (StockReason, error) {
	for _, candidate := range validStockReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock reason %q", value)
}
