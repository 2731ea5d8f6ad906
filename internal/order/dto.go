package order

import "github.com/shopspring/decimal"

// CreateOrderItem payload de ítem. Price and TotalPrice come from the cart and are
// only compared against the catalog; the stored price is always the catalog's.
// swagger:model CreateOrderItem
type CreateOrderItem struct {
	MenuItemID string           `json:"id"       example:"4e7d4e5c-5cb9-4a3f-9f21-7e1a4f9f2b2a"`
	Price      *decimal.Decimal `json:"price"    swaggertype:"string" example:"4500"`
	Quantity   int              `json:"quantity" example:"2"`
	TotalPrice *decimal.Decimal `json:"totalPrice,omitempty" swaggertype:"string"`
}

// CreateOrderRequest payload de creación de orden.
// swagger:model CreateOrderRequest
type CreateOrderRequest struct {
	Items         []CreateOrderItem `json:"items"`
	CustomerName  string            `json:"customer_name"  example:"Jiyoon"`
	CustomerPhone string            `json:"customer_phone" example:"010-1234-5678"`
	OrderType     string            `json:"order_type"     example:"pickup"`
	Notes         string            `json:"notes"`
}

// UpdateStatusRequest payload de cambio de estado.
// swagger:model UpdateStatusRequest
type UpdateStatusRequest struct {
	Status string `json:"status" example:"preparing"`
}
