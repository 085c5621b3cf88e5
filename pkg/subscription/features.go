package subscription

import "storefront_backend/internal/model"

type Feature string

const (
	CustomDomain    Feature = "custom_domain"
	BulkImport      Feature = "bulk_import"
	Integrations    Feature = "integrations"
	PrioritySupport Feature = "priority_support"
)

type PlanLimits struct {
	Plan         model.Plan       `json:"plan"`
	Name         string           `json:"name"`
	MaxProducts  int              `json:"max_products"`
	MaxOrders    int              `json:"max_orders_per_month"`
	PriceMonthly float64          `json:"price_monthly"`
	Features     map[Feature]bool `json:"features"`
}

var PlanFeatures = map[model.Plan]PlanLimits{
	model.PlanFree: {
		Plan:         model.PlanFree,
		Name:         "Free",
		MaxProducts:  10,
		MaxOrders:    50,
		PriceMonthly: 0,
		Features: map[Feature]bool{
			CustomDomain:    false,
			BulkImport:      false,
			Integrations:    false,
			PrioritySupport: false,
		},
	},
	model.PlanBasic: {
		Plan:         model.PlanBasic,
		Name:         "Basic",
		MaxProducts:  100,
		MaxOrders:    500,
		PriceMonthly: 29,
		Features: map[Feature]bool{
			CustomDomain:    true,
			BulkImport:      true,
			Integrations:    false,
			PrioritySupport: false,
		},
	},
	model.PlanPro: {
		Plan:         model.PlanPro,
		Name:         "Pro",
		MaxProducts:  1000,
		MaxOrders:    5000,
		PriceMonthly: 79,
		Features: map[Feature]bool{
			CustomDomain:    true,
			BulkImport:      true,
			Integrations:    true,
			PrioritySupport: false,
		},
	},
	model.PlanEnterprise: {
		Plan:         model.PlanEnterprise,
		Name:         "Enterprise",
		MaxProducts:  model.Unlimited,
		MaxOrders:    model.Unlimited,
		PriceMonthly: 299,
		Features: map[Feature]bool{
			CustomDomain:    true,
			BulkImport:      true,
			Integrations:    true,
			PrioritySupport: true,
		},
	},
}

// PlanOrder lists plans from lowest to highest tier.
var PlanOrder = []model.Plan{model.PlanFree, model.PlanBasic, model.PlanPro, model.PlanEnterprise}

func CanUseFeature(plan model.Plan, feature Feature) bool {
	limits, exists := PlanFeatures[plan]
	if !exists {
		return false
	}
	return limits.Features[feature]
}

// LimitsFor returns the limits of plan, falling back to Free for unknown plans.
func LimitsFor(plan model.Plan) PlanLimits {
	if limits, ok := PlanFeatures[plan]; ok {
		return limits
	}
	return PlanFeatures[model.PlanFree]
}

// ApplyPlan sets the plan and re-derives the store's limits from it.
func ApplyPlan(store *model.Store, plan model.Plan) {
	limits := LimitsFor(plan)
	store.Plan = limits.Plan
	store.ProductLimit = limits.MaxProducts
	store.OrderLimit = limits.MaxOrders
}
