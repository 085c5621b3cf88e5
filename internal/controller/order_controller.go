package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"storefront_backend/internal/middleware"
	"storefront_backend/internal/model"
	"storefront_backend/internal/response"
	"storefront_backend/pkg/logger"
)

const maxOrderLines = 50

type OrderLineInput struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type OrderInput struct {
	CustomerEmail string           `json:"customer_email"`
	Items         []OrderLineInput `json:"items"`
}

type OrderStatusInput struct {
	Status model.OrderStatus `json:"status"`
}

var orderTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:   {model.OrderStatusPaid, model.OrderStatusCanceled},
	model.OrderStatusPaid:      {model.OrderStatusFulfilled, model.OrderStatusRefunded, model.OrderStatusCanceled},
	model.OrderStatusFulfilled: {model.OrderStatusRefunded},
}

func canMoveOrder(from, to model.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// placeOrder prices the lines from the catalogue, reserves stock and stores
// the order in one transaction. Callers enforce the monthly order limit.
func placeOrder(ctx context.Context, db *gorm.DB, storeID uint, customerID *uint, input *OrderInput, activeOnly bool) (*model.Order, error) {
	if len(input.Items) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Order has no items")
	}
	if len(input.Items) > maxOrderLines {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Order cannot have more than %d lines", maxOrderLines))
	}

	customerEmail, ok := normalizeEmail(input.CustomerEmail)
	if !ok {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Valid customer_email is required")
	}

	order := &model.Order{
		StoreID:       storeID,
		CustomerID:    customerID,
		CustomerEmail: customerEmail,
		Status:        model.OrderStatusPending,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := make([]model.OrderItem, 0, len(input.Items))
		for _, line := range input.Items {
			if line.ProductID == 0 || line.Quantity <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Each item needs a product_id and a positive quantity")
			}

			var product model.Product
			q := tx.Where("id = ? AND store_id = ?", line.ProductID, storeID)
			if activeOnly {
				q = q.Where("status = ?", model.ProductStatusActive)
			} else {
				q = q.Where("status <> ?", model.ProductStatusArchived)
			}
			if err := q.First(&product).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Product %d is not available", line.ProductID))
				}
				return err
			}

			if order.Currency == "" {
				order.Currency = product.Currency
			} else if order.Currency != product.Currency {
				return fiber.NewError(fiber.StatusBadRequest, "All items must share one currency")
			}

			res := tx.Model(&model.Product{}).
				Where("id = ? AND stock >= ?", product.ID, line.Quantity).
				Update("stock", gorm.Expr("stock - ?", line.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fiber.NewError(fiber.StatusConflict, fmt.Sprintf("Not enough stock for %s", product.Name))
			}

			items = append(items, model.OrderItem{
				ProductID: product.ID,
				Name:      product.Name,
				Quantity:  line.Quantity,
				UnitPrice: product.Price,
			})
			order.Total += product.Price * float64(line.Quantity)
		}

		raw, err := json.Marshal(items)
		if err != nil {
			return err
		}
		order.Items = datatypes.JSON(raw)
		return tx.Create(order).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

type OrderController struct {
	db *gorm.DB
}

func NewOrderController(db *gorm.DB) *OrderController {
	return &OrderController{db: db}
}

func (o *OrderController) ListOrders(c *fiber.Ctx) error {
	storeID, err := middleware.StoreID(c)
	if err != nil {
		return response.Error(c, err)
	}

	pg := pageFrom(c)
	db := o.db.WithContext(c.UserContext()).Model(&model.Order{}).Where("store_id = ?", storeID)
	if status := c.Query("status"); status != "" {
		db = db.Where("status = ?", strings.ToUpper(status))
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return response.Error(c, err)
	}

	var orders []model.Order
	if err := pg.scope(db).Order("id DESC").Find(&orders).Error; err != nil {
		return response.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"orders":     orders,
		"pagination": pg.meta(total),
	})
}

// CreateOrder records an order on behalf of a customer. Runs behind
// CheckOrderLimit.
func (o *OrderController) CreateOrder(c *fiber.Ctx) error {
	storeID, err := middleware.StoreID(c)
	if err != nil {
		return response.Error(c, err)
	}
	input := new(OrderInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	order, err := placeOrder(c.UserContext(), o.db, storeID, nil, input, false)
	if err != nil {
		return response.Error(c, err)
	}

	logger.FromCtx(c).Info("order created", zap.Uint("store_id", storeID), zap.String("number", order.Number))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order created successfully",
		"order":   order,
	})
}

func (o *OrderController) UpdateOrderStatus(c *fiber.Ctx) error {
	storeID, err := middleware.StoreID(c)
	if err != nil {
		return response.Error(c, err)
	}
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid order id")
	}
	input := new(OrderStatusInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}
	input.Status = model.OrderStatus(strings.ToUpper(string(input.Status)))
	if !input.Status.Valid() {
		return response.BadRequest(c, "Invalid order status")
	}

	var order model.Order
	if err := o.db.WithContext(c.UserContext()).Where("id = ? AND store_id = ?", id, storeID).First(&order).Error; err != nil {
		return response.Error(c, err)
	}
	if order.Status != input.Status && !canMoveOrder(order.Status, input.Status) {
		return response.Fail(c, fiber.StatusBadRequest, "INVALID_STATUS_TRANSITION",
			fmt.Sprintf("order status cannot change from %s to %s", order.Status, input.Status))
	}

	if err := o.db.WithContext(c.UserContext()).Model(&order).Update("status", input.Status).Error; err != nil {
		return response.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Order status updated",
		"order":   order,
	})
}
