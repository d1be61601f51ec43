// AngelaMos | 2026
// dto.go

package inventory

import (
	"time"
)

// Movement is the body of POST /persediaan/{id}/transaction. For an
// adjustment, Quantity is the new absolute stock level.
type Movement struct {
	Type            MovementType `json:"type"             validate:"required,oneof=in out adjustment"`
	Quantity        int          `json:"quantity"         validate:"gte=0"`
	Description     *string      `json:"description"      validate:"omitempty,max=500"`
	TransactionDate *time.Time   `json:"transaction_date"`
}
