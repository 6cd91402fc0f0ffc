package models

import "time"

// Product types.
const (
	ProductTypeVirtual  = "virtual"
	ProductTypePhysical = "physical"
)

// Product is a catalog item redeemable for points. Stock is mutated only by
// services.Redeem and must never go negative.
type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Type        string    `gorm:"size:16;default:'virtual'" json:"type"`
	PricePoints int       `gorm:"not null" json:"price_points"`
	Stock       int       `gorm:"default:0" json:"stock"`
	ImageURL    string    `gorm:"size:500" json:"image_url"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	SortOrder   int       `gorm:"default:0" json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
