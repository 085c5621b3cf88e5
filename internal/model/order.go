package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusFulfilled OrderStatus = "FULFILLED"
	OrderStatusCanceled  OrderStatus = "CANCELED"
	OrderStatusRefunded  OrderStatus = "REFUNDED"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusFulfilled, OrderStatusCanceled, OrderStatusRefunded:
		return true
	}
	return false
}

// OrderItem is one line of Order.Items.
type OrderItem struct {
	ProductID uint    `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type Order struct {
	gorm.Model
	StoreID       uint           `json:"store_id" gorm:"index;not null"`
	Number        string         `json:"number" gorm:"index"`
	CustomerID    *uint          `json:"customer_id" gorm:"index"`
	CustomerEmail string         `json:"customer_email"`
	Status        OrderStatus    `json:"status" gorm:"type:varchar(20);not null;default:'PENDING'"`
	Total         float64        `json:"total" gorm:"not null"`
	Currency      string         `json:"currency" gorm:"type:varchar(3);not null;default:'USD'"`
	Items         datatypes.JSON `json:"items"`

	Store Store `json:"-" gorm:"foreignKey:StoreID"`
}

// BeforeCreate assigns a human readable order number.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.Number == "" {
		o.Number = fmt.Sprintf("ORD-%s-%d", time.Now().UTC().Format("20060102"), time.Now().UnixNano()%1000000)
	}
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	return nil
}
