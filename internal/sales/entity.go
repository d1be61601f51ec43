// AngelaMos | 2026
// entity.go

package sales

import (
	"time"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

type Sale struct {
	ID         string    `db:"id"          json:"id"`
	PropertyID string    `db:"property_id" json:"property_id"`
	BuyerName  string    `db:"buyer_name"  json:"buyer_name"`
	SalePrice  float64   `db:"sale_price"  json:"sale_price"`
	SaleDate   time.Time `db:"sale_date"   json:"sale_date"`
	Status     string    `db:"status"      json:"status"`
	CreatedBy  *string   `db:"created_by"  json:"created_by"`
	UpdatedAt  time.Time `db:"updated_at"  json:"updated_at"`
}

type FinancialTransaction struct {
	ID              string    `db:"id"               json:"id"`
	Type            string    `db:"type"             json:"type"`
	Category        string    `db:"category"         json:"category"`
	Amount          float64   `db:"amount"           json:"amount"`
	Description     string    `db:"description"      json:"description"`
	TransactionDate time.Time `db:"transaction_date" json:"transaction_date"`
	PropertyID      *string   `db:"property_id"      json:"property_id"`
	SaleID          *string   `db:"sale_id"          json:"sale_id"`
	CreatedBy       *string   `db:"created_by"       json:"created_by"`
	CreatedAt       time.Time `db:"created_at"       json:"created_at"`
}

type Completion struct {
	Sale        *Sale                 `json:"sale"`
	Transaction *FinancialTransaction `json:"transaction"`
}
