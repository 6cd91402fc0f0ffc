package models

import "time"

// Order status chart: pending -> shipped -> completed, or pending -> cancelled.
const (
	OrderStatusPending   = "pending"
	OrderStatusShipped   = "shipped"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// Order records one redemption. PointsCost snapshots the product price at
// redemption time and is unaffected by later price edits.
type Order struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OrderNo      string    `gorm:"size:32;uniqueIndex;not null" json:"order_no"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	ProductID    uint      `gorm:"index;not null" json:"product_id"`
	Quantity     int       `gorm:"default:1" json:"quantity"`
	PointsCost   int       `gorm:"not null" json:"points_cost"`
	Status       string    `gorm:"size:16;default:'pending';index" json:"status"`
	DeliveryInfo StringMap `gorm:"type:json" json:"delivery_info"`
	ShippingInfo StringMap `gorm:"type:json" json:"shipping_info"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	User         User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user,omitempty"`
	Product      Product   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"product,omitempty"`
}
