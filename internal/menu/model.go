package menu

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMaxStock is used when an item is created without an explicit capacity.
const DefaultMaxStock = 50

type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// NUMERIC in Postgres; decimal avoids float rounding on totals.
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"category"`
	ImageURL  string          `json:"image_url"`
	Available bool            `json:"available"`
	Stock     int             `json:"stock"`
	MaxStock  int             `json:"max_stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (i Item) SoldOut() bool { return i.Stock == 0 }

// MarshalJSON adds the derived sold_out flag.
func (i Item) MarshalJSON() ([]byte, error) {
	type plain Item
	return json.Marshal(struct {
		plain
		SoldOut bool `json:"sold_out"`
	}{plain(i), i.SoldOut()})
}

type Query struct {
	Category           string
	IncludeUnavailable bool
}

// CreateRequest payload of creation.
// swagger:model CreateMenuItemRequest
type CreateRequest struct {
	Name        string          `json:"name"        example:"Americano (HOT)"`
	Description string          `json:"description" example:"Espresso topped with hot water"`
	Price       decimal.Decimal `json:"price"       swaggertype:"string" example:"4500"`
	Category    string          `json:"category"    example:"coffee"`
	ImageURL    string          `json:"image_url"   example:"/images/menu/americano-hot.jpg"`
	Available   *bool           `json:"available"`
	Stock       int             `json:"stock"       example:"20"`
	MaxStock    *int            `json:"max_stock"   example:"20"`
}

// UpdateRequest payload of partial update; nil fields are left unchanged.
// swagger:model UpdateMenuItemRequest
type UpdateRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price" swaggertype:"string"`
	Category    *string          `json:"category"`
	ImageURL    *string          `json:"image_url"`
	Available   *bool            `json:"available"`
	MaxStock    *int             `json:"max_stock"`
}
