package models

import "time"

// Product 商品表，抽奖流程只读取并原子扣减库存
type Product struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string    `gorm:"column:name;size:255;not null" json:"name"`
	Description    string    `gorm:"column:description;type:text" json:"description"`
	BasePriceCents int64     `gorm:"column:base_price_cents" json:"base_price_cents"`
	StockQuantity  int       `gorm:"column:stock_quantity;default:0" json:"stock_quantity"`
	WeightOunces   float64   `gorm:"column:weight_ounces;default:0" json:"weight_ounces"`
	TIC            string    `gorm:"column:tic;size:16" json:"tic,omitempty"` // TaxCloud 税码
	ImageURL       string    `gorm:"column:image_url;size:512" json:"image_url"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 表名
func (Product) TableName() string {
	return "products"
}

// InStock 是否有库存
func (p *Product) InStock() bool {
	return p.StockQuantity > 0
}
