package models

// MenuItem is one entry of the backend menu catalog. The catalog is
// immutable once loaded and replaced wholesale on every reload.
type MenuItem struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
}

// CartLine aggregates one distinct menu item in the in-progress order.
// Quantity never drops below 1; removal deletes the line instead.
type CartLine struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	Quantity int     `json:"quantity"`
}

// OrderSubmission is the write-once payload sent to POST /api/orders,
// built from the cart snapshot at submit time.
type OrderSubmission struct {
	Items       []CartLine `json:"items"`
	TotalAmount float64    `json:"total_amount"`
	Notes       string     `json:"notes"`
}

// Order is the backend's view of a created order.
type Order struct {
	ID          int     `json:"id"`
	OrderNumber string  `json:"order_number"`
	TotalAmount float64 `json:"total_amount"`
	Status      string  `json:"status"`
	Notes       string  `json:"notes,omitempty"`
}

// AnalyticsItem is one aggregated row of the sales breakdown table.
type AnalyticsItem struct {
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Quantity   int     `json:"quantity"`
	TotalPrice float64 `json:"total_price"`
	Date       string  `json:"date"`
}

// AnalyticsSnapshot is the most recently fetched sales result set,
// retained only so CSV export never refetches.
type AnalyticsSnapshot struct {
	TotalOrders  int             `json:"total_orders"`
	TotalRevenue float64         `json:"total_revenue"`
	Items        []AnalyticsItem `json:"items"`
}

// OrderStatusEvent is the payload of an order_updated push event.
type OrderStatusEvent struct {
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
}
