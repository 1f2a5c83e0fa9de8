// internal/router/router.go
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/shopora/shopora-backend/internal/cache"
	"github.com/shopora/shopora-backend/internal/config"
	"github.com/shopora/shopora-backend/internal/handlers"
	"github.com/shopora/shopora-backend/internal/middleware"
	"github.com/shopora/shopora-backend/internal/models"
	"github.com/shopora/shopora-backend/internal/services"
	"github.com/shopora/shopora-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Storefront cache is optional. A dead Redis downgrades reads to the
	// database instead of failing the process.
	productCache := cache.NewProductCache(cfg.Redis)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := productCache.Ping(ctx); err != nil {
		logrus.WithError(err).Warn("Redis unavailable, storefront cache disabled")
		productCache = nil
	}

	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Warn("S3 unavailable, falling back to local storage")
		localCfg := *cfg
		localCfg.AWS.AccessKeyID = ""
		storageService, _ = services.NewStorageService(&localCfg)
	}

	// Initialize services
	authService := services.NewAuthService(db, cfg)
	cartService := services.NewCartService(db)
	orderService := services.NewOrderService(db, cartService, cfg)
	paymentService := services.NewPaymentService(db, cfg)
	productService := services.NewProductService(db, productCache)
	storeService := services.NewStoreService(db)
	downloadService := services.NewDownloadService(db, storageService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	cartHandler := handlers.NewCartHandler(cartService)
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	productHandler := handlers.NewProductHandler(productService, storageService)
	storeHandler := handlers.NewStoreHandler(storeService)
	downloadHandler := handlers.NewDownloadHandler(downloadService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.BaseURL))
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Public storefront routes
		stores := v1.Group("/stores")
		{
			stores.GET("/:slug", storeHandler.GetStore)
			stores.GET("/:slug/products", productHandler.GetStorefront)
			stores.GET("/:slug/products/:productSlug", productHandler.GetStorefrontProduct)
		}

		// Cart routes
		cart := v1.Group("/cart")
		cart.Use(middleware.AuthRequired())
		{
			cart.GET("", cartHandler.GetCart)
			cart.POST("/items", cartHandler.AddItem)
			cart.DELETE("/items/:productId", cartHandler.RemoveItem)
			cart.DELETE("", cartHandler.ClearCart)
		}

		// Order routes
		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired())
		{
			orders.POST("", middleware.CheckoutRateLimit(), orderHandler.PlaceOrder)
			orders.GET("", orderHandler.GetOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.GET("/:id/invoice", orderHandler.GetInvoice)
			orders.POST("/:id/checkout", middleware.CheckoutRateLimit(), paymentHandler.CreateCheckoutSession)
		}

		// Digital downloads
		downloads := v1.Group("/downloads")
		downloads.Use(middleware.AuthRequired())
		{
			downloads.GET("/:productId", downloadHandler.GetDownloadLink)
		}

		// Payment webhook. Stripe signs the request itself, no session auth.
		v1.POST("/payments/webhook", paymentHandler.HandleWebhook)

		// Store owner dashboard
		dashboard := v1.Group("/dashboard")
		dashboard.Use(middleware.AuthRequired())
		dashboard.Use(middleware.RoleRequired(models.RoleStoreOwner, models.RoleSuperadmin))
		{
			dashboard.GET("/store", storeHandler.GetMyStore)
			dashboard.PATCH("/store", storeHandler.UpdateSettings)

			dashboard.POST("/products", productHandler.CreateProduct)
			dashboard.GET("/products", productHandler.GetMyProducts)
			dashboard.PATCH("/products/:id", productHandler.UpdateProduct)
			dashboard.DELETE("/products/:id", productHandler.DeleteProduct)
			dashboard.POST("/products/upload", productHandler.UploadFile)

			dashboard.GET("/orders", orderHandler.GetOrders)
			dashboard.GET("/orders/:id", orderHandler.GetOrder)
			dashboard.PATCH("/orders/:id/status", orderHandler.UpdateOrderStatus)
		}

		// Platform admin
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired())
		admin.Use(middleware.RoleRequired(models.RoleSuperadmin))
		{
			admin.GET("/stores", storeHandler.ListStores)
			admin.PATCH("/stores/:slug/status", storeHandler.SetStoreStatus)
			admin.POST("/refunds", paymentHandler.Refund)
		}
	}

	return r
}
