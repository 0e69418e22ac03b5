package report

import "time"

// RoleCount is one bucket of a users-by-role rollup.
type RoleCount struct {
	Role  string `json:"role" db:"role"`
	Count int    `json:"count" db:"count"`
}

// StatusCount is one bucket of an orders-by-status rollup.
type StatusCount struct {
	Status string `json:"status" db:"status"`
	Count  int    `json:"count" db:"count"`
}

// AdminStats is the platform-wide dashboard.
type AdminStats struct {
	TotalUsers     int           `json:"total_users"`
	UsersByRole    []RoleCount   `json:"users_by_role"`
	TotalProducts  int           `json:"total_products"`
	ActiveProducts int           `json:"active_products"`
	TotalOrders    int           `json:"total_orders"`
	OrdersByStatus []StatusCount `json:"orders_by_status"`
	Revenue        float64       `json:"revenue"`
	LowStockCount  int           `json:"low_stock_count"`
}

// SellerStats is the dashboard scoped to one seller's products. Revenue is
// the seller's share of non-cancelled orders: the sum of their line totals.
type SellerStats struct {
	TotalProducts  int           `json:"total_products"`
	ActiveProducts int           `json:"active_products"`
	LowStockCount  int           `json:"low_stock_count"`
	OrdersByStatus []StatusCount `json:"orders_by_status"`
	Revenue        float64       `json:"revenue"`
}

// DeliveryStats is the dashboard scoped to one delivery agent's assignments.
type DeliveryStats struct {
	AssignedByStatus []StatusCount `json:"assigned_by_status"`
	DeliveredTotal   int           `json:"delivered_total"`
	DeliveredToday   int           `json:"delivered_today"`
}

// SalesPoint is one day of the sales series. Days without orders do not
// appear in the series.
type SalesPoint struct {
	Day     time.Time `json:"day" db:"day"`
	Orders  int       `json:"orders" db:"orders"`
	Revenue float64   `json:"revenue" db:"revenue"`
}
