package purchaserequest

import "github.com/google/uuid"

// CanUpdatePurchaseRequest reports whether the acting user may mutate a
// request owned by requesterID. Ownership is the only policy; role or
// capability data never enters the decision.
func CanUpdatePurchaseRequest(actingUserID, requesterID uuid.UUID) bool {
	if actingUserID == uuid.Nil || requesterID == uuid.Nil {
		return false
	}
	return actingUserID == requesterID
}
