package models

import "time"

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderApproved  OrderStatus = "approved"
	OrderPaid      OrderStatus = "paid"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

// Order 订单表，raffle_winner_id 唯一保证每个中奖者最多一个订单
type Order struct {
	ID              uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber     string      `gorm:"column:order_number;size:36;uniqueIndex;not null" json:"order_number"`
	UserID          string      `gorm:"column:user_id;size:64;index;not null" json:"user_id"`
	Status          OrderStatus `gorm:"column:status;size:20;default:'pending';index" json:"status"`
	RaffleWinnerID  *uint       `gorm:"column:raffle_winner_id;uniqueIndex" json:"raffle_winner_id,omitempty"`
	SubtotalCents   int64       `gorm:"column:subtotal_cents" json:"subtotal_cents"`
	ShippingCents   int64       `gorm:"column:shipping_cents" json:"shipping_cents"`
	TaxCents        int64       `gorm:"column:tax_cents" json:"tax_cents"`
	TotalCents      int64       `gorm:"column:total_cents" json:"total_cents"`
	Currency        string      `gorm:"column:currency;size:3;default:'USD'" json:"currency"`
	PayPalOrderID   *string     `gorm:"column:paypal_order_id;size:64;uniqueIndex" json:"paypal_order_id,omitempty"`
	PayPalCaptureID *string     `gorm:"column:paypal_capture_id;size:64" json:"paypal_capture_id,omitempty"`
	PayPalStatus    string      `gorm:"column:paypal_status;size:32" json:"paypal_status,omitempty"`
	PayPalPayerID   string      `gorm:"column:paypal_payer_id;size:64" json:"paypal_payer_id,omitempty"`
	PaidAt          *time.Time  `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CreatedAt       time.Time   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"column:updated_at" json:"updated_at"`
	Items           []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// TableName 表名
func (Order) TableName() string {
	return "orders"
}

// IsPayable 是否还能发起支付
func (o *Order) IsPayable() bool {
	return o.Status == OrderPending || o.Status == OrderApproved
}

// OrderItem 订单明细
type OrderItem struct {
	ID             uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID        uint   `gorm:"column:order_id;index;not null" json:"order_id"`
	ProductID      uint   `gorm:"column:product_id;index" json:"product_id"`
	Name           string `gorm:"column:name;size:255" json:"name"`
	Quantity       int    `gorm:"column:quantity;default:1" json:"quantity"`
	UnitPriceCents int64  `gorm:"column:unit_price_cents" json:"unit_price_cents"`
}

// TableName 表名
func (OrderItem) TableName() string {
	return "order_items"
}
