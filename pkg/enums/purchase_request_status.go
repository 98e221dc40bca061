package enums

import "fmt"

// PurchaseRequestStatus tracks the lifecycle of a buyer's purchase request.
type PurchaseRequestStatus string

const (
	PurchaseRequestStatusNew       PurchaseRequestStatus = "new"
	PurchaseRequestStatusConfirmed PurchaseRequestStatus = "confirmed"
	PurchaseRequestStatusCancelled PurchaseRequestStatus = "cancelled"
	PurchaseRequestStatusExpired   PurchaseRequestStatus = "expired"
)

var validPurchaseRequestStatuses = []PurchaseRequestStatus{
	PurchaseRequestStatusNew,
	PurchaseRequestStatusConfirmed,
	PurchaseRequestStatusCancelled,
	PurchaseRequestStatusExpired,
}

// String implements fmt.Stringer.
func (p PurchaseRequestStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PurchaseRequestStatus.
func (p PurchaseRequestStatus) IsValid() bool {
	for _, candidate := range validPurchaseRequestStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (p PurchaseRequestStatus) IsTerminal() bool {
	switch p {
	case PurchaseRequestStatusConfirmed, PurchaseRequestStatusCancelled, PurchaseRequestStatusExpired:
		return true
	default:
		return false
	}
}

// ParsePurchaseRequestStatus converts raw input into a PurchaseRequestStatus.
func ParsePurchaseRequestStatus(value string) (PurchaseRequestStatus, error) {
	for _, candidate := range validPurchaseRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase request status %q", value)
}
