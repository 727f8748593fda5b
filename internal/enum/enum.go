package enum

// ── Order types (stored verbatim in sales.order_type, matched by filters) ──

const (
	OrderTypeDineIn       = "Dine In"
	OrderTypeTakeAway     = "Take Away"
	OrderTypeHomeDelivery = "Home Delivery"
)

// ── Sales list status filter values (query string, not persisted) ──

const (
	StatusFilterAll     = "All"
	StatusFilterClosed  = "Closed"
	StatusFilterRunning = "Running"
)

// ── Event kinds on the order bus; doubled as SSE event names ──

const (
	EventOrderCreated = "ORDER_CREATED"
	EventOrderUpdated = "ORDER_UPDATED"
	EventOrderClosed  = "ORDER_CLOSED"
)
