package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"storefront_backend/internal/middleware"
	"storefront_backend/internal/model"
	"storefront_backend/internal/response"
	"storefront_backend/pkg/subscription"
)

const dashboardDays = 7

// DashboardStats is the store overview shown on the dashboard home.
type DashboardStats struct {
	TotalProducts    int64         `json:"total_products"`
	ActiveProducts   int64         `json:"active_products"`
	OutOfStock       int64         `json:"out_of_stock"`
	OrdersThisMonth  int64         `json:"orders_this_month"`
	RevenueThisMonth float64       `json:"revenue_this_month"`
	OrdersByStatus   []StatusCount `json:"orders_by_status"`
	DailyStats       []DailyStat   `json:"daily_stats"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type DailyStat struct {
	Date        string  `json:"date"`
	Orders      int64   `json:"orders"`
	Revenue     float64 `json:"revenue"`
	NewProducts int64   `json:"new_products"`
}

// revenueStatuses are the order states that count as earned.
var revenueStatuses = []model.OrderStatus{model.OrderStatusPaid, model.OrderStatusFulfilled}

type AnalyticsController struct {
	db *gorm.DB
}

func NewAnalyticsController(db *gorm.DB) *AnalyticsController {
	return &AnalyticsController{db: db}
}

func (a *AnalyticsController) revenue(db *gorm.DB, storeID uint, from, to time.Time) (float64, error) {
	var total float64
	err := db.Model(&model.Order{}).
		Select("COALESCE(SUM(total), 0)").
		Where("store_id = ? AND status IN ? AND created_at >= ? AND created_at < ?", storeID, revenueStatuses, from, to).
		Scan(&total).Error
	return total, err
}

// GetDashboardStats returns product, order and revenue figures for the
// current month and the last seven days.
func (a *AnalyticsController) GetDashboardStats(c *fiber.Ctx) error {
	storeID, err := middleware.StoreID(c)
	if err != nil {
		return response.Error(c, err)
	}
	db := a.db.WithContext(c.UserContext())
	now := timeNow()

	var stats DashboardStats
	products := db.Model(&model.Product{}).Where("store_id = ?", storeID).Session(&gorm.Session{})
	if err := products.Count(&stats.TotalProducts).Error; err != nil {
		return response.Error(c, err)
	}
	if err := products.Where("status = ?", model.ProductStatusActive).Count(&stats.ActiveProducts).Error; err != nil {
		return response.Error(c, err)
	}
	if err := products.Where("status = ? AND stock = 0", model.ProductStatusActive).Count(&stats.OutOfStock).Error; err != nil {
		return response.Error(c, err)
	}

	monthStart, monthEnd := subscription.MonthWindow(now)
	if err := db.Model(&model.Order{}).
		Where("store_id = ? AND created_at >= ? AND created_at < ?", storeID, monthStart, monthEnd).
		Count(&stats.OrdersThisMonth).Error; err != nil {
		return response.Error(c, err)
	}
	if stats.RevenueThisMonth, err = a.revenue(db, storeID, monthStart, monthEnd); err != nil {
		return response.Error(c, err)
	}

	if err := db.Model(&model.Order{}).
		Select("status, COUNT(*) AS count").
		Where("store_id = ?", storeID).
		Group("status").
		Order("status").
		Scan(&stats.OrdersByStatus).Error; err != nil {
		return response.Error(c, err)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for i := dashboardDays - 1; i >= 0; i-- {
		from := today.AddDate(0, 0, -i)
		to := from.AddDate(0, 0, 1)
		stat := DailyStat{Date: from.Format("2006-01-02")}

		if err := db.Model(&model.Order{}).
			Where("store_id = ? AND created_at >= ? AND created_at < ?", storeID, from, to).
			Count(&stat.Orders).Error; err != nil {
			return response.Error(c, err)
		}
		if stat.Revenue, err = a.revenue(db, storeID, from, to); err != nil {
			return response.Error(c, err)
		}
		if err := db.Model(&model.Product{}).
			Where("store_id = ? AND created_at >= ? AND created_at < ?", storeID, from, to).
			Count(&stat.NewProducts).Error; err != nil {
			return response.Error(c, err)
		}
		stats.DailyStats = append(stats.DailyStats, stat)
	}

	return c.JSON(stats)
}
