// AngelaMos | 2026
// entity.go

package inventory

import (
	"time"
)

type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

type Item struct {
	ID       string  `db:"id"        json:"id"`
	Name     string  `db:"name"      json:"name"`
	Quantity int     `db:"quantity"  json:"quantity"`
	Unit     *string `db:"unit"      json:"unit"`
	MinStock int     `db:"min_stock" json:"min_stock"`
}

func (i *Item) LowStock() bool {
	return i.Quantity <= i.MinStock
}

type Transaction struct {
	ID              string       `db:"id"               json:"id"`
	InventoryID     string       `db:"inventory_id"     json:"inventory_id"`
	Type            MovementType `db:"type"             json:"type"`
	Quantity        int          `db:"quantity"         json:"quantity"`
	Description     *string      `db:"description"      json:"description"`
	TransactionDate time.Time    `db:"transaction_date" json:"transaction_date"`
	CreatedBy       *string      `db:"created_by"       json:"created_by"`
	CreatedAt       time.Time    `db:"created_at"       json:"created_at"`
}

type MovementResult struct {
	Transaction *Transaction `json:"transaction"`
	NewQuantity int          `json:"new_quantity"`
}
