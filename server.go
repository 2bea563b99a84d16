package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bitbucket.org/essenzadr/perfumeria_backend/config"
	"bitbucket.org/essenzadr/perfumeria_backend/handlers"
	"bitbucket.org/essenzadr/perfumeria_backend/models"
	"bitbucket.org/essenzadr/perfumeria_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultPort = "8080"

// correlationMiddleware stamps every request with a correlation id; allocation
// records created during the request carry it for provenance tracing.
func correlationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationId := c.GetHeader("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationId)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Correlation-Id", correlationId)
		c.Next()
	}
}

func newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Correlation-Id"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(correlationMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/products", handlers.CreateProduct)
		api.GET("/products", handlers.ListProducts)
		api.GET("/products/:id", handlers.GetProduct)
		api.POST("/customers", handlers.CreateCustomer)
		api.GET("/customers", handlers.ListCustomers)

		api.POST("/shipments", handlers.CreateShipment)
		api.GET("/shipments", handlers.ListShipments)
		api.GET("/shipments/:id", handlers.GetShipment)
		api.PATCH("/shipments/:id/status", handlers.UpdateShipmentStatus)
		api.GET("/shipments/:id/reconcile", handlers.ReconcileShipment)

		api.GET("/inventory", handlers.GetAvailableInventory)
		api.POST("/inventory/adjustments", handlers.AdjustInventory)

		api.POST("/sales", handlers.CreateSale)
		api.GET("/sales", handlers.ListSales)
		api.GET("/sales/:id", handlers.GetSale)
		api.DELETE("/sales/:id", handlers.VoidSale)
		api.POST("/sales/:id/payments", handlers.UpdateSalePayment)
		api.POST("/sales/:id/pay-all", handlers.PaySaleInFull)

		api.GET("/exchange-rate", handlers.GetExchangeRate)
		api.POST("/exchange-rate", handlers.SetExchangeRate)
	}

	return router
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: newRouter(),
	}

	// Start listening first; DB and Redis connect with retry afterwards so a
	// slow dependency does not block container startup.
	go func() {
		log.Printf("listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("server exited")
}
