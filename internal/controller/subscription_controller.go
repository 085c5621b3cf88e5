package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v74/webhook"
	"go.uber.org/zap"

	"storefront_backend/internal/middleware"
	"storefront_backend/internal/model"
	"storefront_backend/internal/response"
	"storefront_backend/pkg/billing"
	"storefront_backend/pkg/logger"
	"storefront_backend/pkg/subscription"
)

type CheckoutInput struct {
	Plan model.Plan `json:"plan"`
}

type SubscriptionController struct {
	enforcer      *subscription.Enforcer
	billing       *billing.Service
	webhookSecret string
}

func NewSubscriptionController(enforcer *subscription.Enforcer, billingService *billing.Service, webhookSecret string) *SubscriptionController {
	return &SubscriptionController{enforcer: enforcer, billing: billingService, webhookSecret: webhookSecret}
}

// ListPlans returns the plan table from lowest to highest tier.
func (s *SubscriptionController) ListPlans(c *fiber.Ctx) error {
	plans := make([]fiber.Map, 0, len(subscription.PlanOrder))
	for _, plan := range subscription.PlanOrder {
		limits := subscription.PlanFeatures[plan]
		plans = append(plans, fiber.Map{
			"plan":                 limits.Plan,
			"name":                 limits.Name,
			"max_products":         limits.MaxProducts,
			"max_orders_per_month": limits.MaxOrders,
			"price_monthly":        limits.PriceMonthly,
			"features":             limits.Features,
			"purchasable":          s.billing.Purchasable(plan),
		})
	}
	return c.JSON(fiber.Map{"plans": plans})
}

func (s *SubscriptionController) GetUsage(c *fiber.Ctx) error {
	storeID, err := middleware.StoreID(c)
	if err != nil {
		return response.Error(c, err)
	}
	stats, err := s.enforcer.GetUsageStats(c.UserContext(), storeID)
	if err != nil {
		return response.Error(c, err)
	}
	if stats == nil {
		return response.Error(c, subscription.ErrStoreNotFound)
	}
	return c.JSON(stats)
}

func (s *SubscriptionController) Checkout(c *fiber.Ctx) error {
	storeID, err := middleware.StoreID(c)
	if err != nil {
		return response.Error(c, err)
	}
	input := new(CheckoutInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	url, err := s.billing.Checkout(c.UserContext(), storeID, model.Plan(strings.ToUpper(string(input.Plan))))
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(fiber.Map{"checkout_url": url})
}

func (s *SubscriptionController) Cancel(c *fiber.Ctx) error {
	storeID, err := middleware.StoreID(c)
	if err != nil {
		return response.Error(c, err)
	}
	store, err := s.billing.Cancel(c.UserContext(), storeID)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(fiber.Map{
		"message":              "Subscription will be cancelled at the end of the billing period",
		"subscription_ends_at": store.SubscriptionEndsAt,
	})
}

// HandleStripeWebhook verifies and applies a Stripe event. Failures other
// than a bad signature return 500 so Stripe retries the delivery.
func (s *SubscriptionController) HandleStripeWebhook(c *fiber.Ctx) error {
	log := logger.FromCtx(c)
	if s.webhookSecret == "" {
		return response.Error(c, billing.ErrNotConfigured)
	}

	event, err := webhook.ConstructEvent(c.Body(), c.Get("Stripe-Signature"), s.webhookSecret)
	if err != nil {
		log.Warn("rejected stripe webhook", zap.Error(err))
		return response.BadRequest(c, "Invalid webhook signature")
	}

	if err := s.billing.HandleEvent(c.UserContext(), event); err != nil {
		log.Error("stripe webhook failed", zap.String("event_id", event.ID), zap.Error(err))
		return response.Fail(c, fiber.StatusInternalServerError, response.CodeInternal, "Could not process webhook")
	}
	return c.SendStatus(fiber.StatusOK)
}
