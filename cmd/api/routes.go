package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront_backend/internal/controller"
	"storefront_backend/internal/middleware"
	"storefront_backend/internal/response"
	"storefront_backend/pkg/billing"
	"storefront_backend/pkg/config"
	"storefront_backend/pkg/email"
	"storefront_backend/pkg/importer"
	"storefront_backend/pkg/logger"
	"storefront_backend/pkg/metrics"
	"storefront_backend/pkg/rbac"
	"storefront_backend/pkg/subscription"
	"storefront_backend/pkg/tenant"
	"storefront_backend/pkg/utils/cloudflare"
	"storefront_backend/pkg/utils/jwt"
)

// localUploadsPath serves files written by the local object store.
const localUploadsPath = "/uploads"

// services holds everything the HTTP layer depends on.
type services struct {
	cfg      *config.Config
	db       *gorm.DB
	log      *zap.Logger
	tokens   *jwt.Manager
	resolver *tenant.Resolver
	enforcer *subscription.Enforcer
	billing  *billing.Service
	notifier email.Notifier
	uploader *cloudflare.Uploader
	importer *importer.Importer
	gatherer prometheus.Gatherer
}

func newApp(s *services) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "storefront",
		ErrorHandler: response.ErrorHandler,
		BodyLimit:    12 * 1024 * 1024,

		// X-Forwarded-Host selects the tenant; only listed proxies may set it.
		EnableTrustedProxyCheck: true,
		TrustedProxies:          s.cfg.Server.TrustedProxies,
		ProxyHeader:             proxyHeader(s.cfg.Server.TrustedProxies),
	})

	app.Use(requestid.New(requestid.Config{Generator: utils.UUIDv4}))
	app.Use(logger.Middleware(s.log))
	app.Use(metrics.Middleware())
	for _, h := range middleware.Security(s.cfg.RateLimit) {
		app.Use(h)
	}
	app.Use(cors.New())

	setupRoutes(app, s)
	return app
}

func proxyHeader(trusted []string) string {
	if len(trusted) == 0 {
		return ""
	}
	return fiber.HeaderXForwardedFor
}

func setupRoutes(app *fiber.App, s *services) {
	authController := controller.NewAuthController(s.db, s.tokens, s.notifier, s.cfg.Platform)
	storeController := controller.NewStoreController(s.db, s.enforcer, s.resolver, s.uploader)
	domainController := controller.NewDomainController(s.db, s.resolver)
	productController := controller.NewProductController(s.db, s.importer)
	orderController := controller.NewOrderController(s.db)
	userController := controller.NewUserController(s.db)
	subscriptionController := controller.NewSubscriptionController(s.enforcer, s.billing, s.cfg.Stripe.WebhookSecret)
	storefrontController := controller.NewStorefrontController(s.db)
	analyticsController := controller.NewAnalyticsController(s.db)
	healthController := controller.NewHealthController(s.db)

	app.Get("/healthz", healthController.Health)
	if s.cfg.R2.LocalDir != "" {
		app.Static(localUploadsPath, s.cfg.R2.LocalDir)
	}
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	auth := middleware.AuthMiddleware(s.tokens, s.db)
	api := app.Group("/api")

	// Auth routes
	api.Post("/auth/register", authController.Register)
	api.Post("/auth/login", authController.Login)
	api.Get("/me", auth, authController.GetMe)
	api.Get("/me/logins", auth, authController.GetLoginHistory)

	// Stripe webhook
	api.Post("/webhook", subscriptionController.HandleStripeWebhook)

	// Store settings
	store := api.Group("/store", auth)
	store.Get("/", middleware.RequirePermission(rbac.ResourceStores, rbac.ActionRead), storeController.GetStore)
	store.Put("/", middleware.RequirePermission(rbac.ResourceSettings, rbac.ActionUpdate), storeController.UpdateStore)
	store.Post("/logo", middleware.RequirePermission(rbac.ResourceSettings, rbac.ActionUpdate), storeController.UploadLogo)

	// SuperAdmin store management
	stores := api.Group("/stores", auth, middleware.RequireRole(rbac.RoleSuperAdmin))
	stores.Get("/", storeController.ListStores)
	stores.Delete("/:id", storeController.DeleteStore)
	stores.Put("/:id/plan", storeController.ChangePlan)
	stores.Put("/:id/limits", storeController.ChangeLimits)

	// Custom domains
	domains := api.Group("/domains", auth)
	domains.Get("/", middleware.RequirePermission(rbac.ResourceDomains, rbac.ActionRead), domainController.ListDomains)
	domains.Post("/",
		middleware.RequirePermission(rbac.ResourceDomains, rbac.ActionCreate),
		middleware.CheckFeatureAccess(s.db, subscription.CustomDomain),
		domainController.AddDomain)
	domains.Put("/:id/primary", middleware.RequirePermission(rbac.ResourceDomains, rbac.ActionUpdate), domainController.SetPrimary)
	domains.Delete("/:id", middleware.RequirePermission(rbac.ResourceDomains, rbac.ActionDelete), domainController.RemoveDomain)

	// Products
	products := api.Group("/products", auth, middleware.RequireRole(rbac.RoleStaff))
	products.Get("/", middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionRead), productController.ListProducts)
	products.Post("/",
		middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionCreate),
		middleware.CheckProductLimit(s.enforcer),
		productController.CreateProduct)
	products.Post("/import",
		middleware.RequirePermission(rbac.ResourceImports, rbac.ActionCreate),
		middleware.CheckFeatureAccess(s.db, subscription.BulkImport),
		productController.ImportProducts)
	products.Get("/:id", middleware.CheckProductOwnership(s.db), productController.GetProduct)
	products.Put("/:id", middleware.CheckProductOwnership(s.db), productController.UpdateProduct)
	products.Delete("/:id", middleware.CheckProductOwnership(s.db), productController.DeleteProduct)

	// Orders
	orders := api.Group("/orders", auth, middleware.RequireRole(rbac.RoleStaff))
	orders.Get("/", middleware.RequirePermission(rbac.ResourceOrders, rbac.ActionRead), orderController.ListOrders)
	orders.Post("/",
		middleware.RequirePermission(rbac.ResourceOrders, rbac.ActionCreate),
		middleware.CheckOrderLimit(s.enforcer),
		orderController.CreateOrder)
	orders.Put("/:id/status", middleware.RequirePermission(rbac.ResourceOrders, rbac.ActionUpdate), orderController.UpdateOrderStatus)

	// Dashboard
	api.Get("/analytics", auth, middleware.RequirePermission(rbac.ResourceAnalytics, rbac.ActionRead), analyticsController.GetDashboardStats)

	// Store members
	users := api.Group("/users", auth)
	users.Get("/", middleware.RequirePermission(rbac.ResourceUsers, rbac.ActionRead), userController.ListUsers)
	users.Post("/", middleware.RequirePermission(rbac.ResourceUsers, rbac.ActionCreate), userController.CreateUser)
	users.Put("/:id/role", middleware.RequirePermission(rbac.ResourceUsers, rbac.ActionUpdate), userController.UpdateRole)

	// Subscription routes
	subscriptions := api.Group("/subscriptions")
	subscriptions.Get("/plans", subscriptionController.ListPlans)
	subscriptions.Get("/usage", auth, middleware.RequirePermission(rbac.ResourceSubscriptions, rbac.ActionRead), subscriptionController.GetUsage)
	subscriptions.Post("/checkout", auth, middleware.RequirePermission(rbac.ResourceSubscriptions, rbac.ActionUpdate), subscriptionController.Checkout)
	subscriptions.Post("/cancel", auth, middleware.RequirePermission(rbac.ResourceSubscriptions, rbac.ActionUpdate), subscriptionController.Cancel)

	// Storefront, resolved from the Host header
	storefront := app.Group("/storefront",
		middleware.ResolveTenant(s.resolver, s.cfg.Platform.Scheme),
		middleware.OptionalAuth(s.tokens, s.db),
		middleware.StorefrontCSRF(s.cfg.Platform.Scheme == "https"))
	storefront.Get("/", storefrontController.GetStore)
	storefront.Get("/products", storefrontController.ListProducts)
	storefront.Get("/products/:slug", storefrontController.GetProduct)
	storefront.Post("/orders",
		middleware.CheckOrderLimit(s.enforcer),
		storefrontController.PlaceOrder)
}
