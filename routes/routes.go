package routes

import (
	"net/http"

	"civic-portal/controllers"
	"civic-portal/middleware"

	"github.com/gin-gonic/gin"
)

// Register wires all portal routes. The webhook endpoint is unauthenticated:
// the gateway proves itself with the body signature, not a bearer token.
func Register(
	r *gin.Engine,
	pc *controllers.PaymentController,
	wc *controllers.WebhookController,
	fc *controllers.WorkflowController,
	xc *controllers.ProxyController,
	jwtSecret string,
	limiter *middleware.RateLimiter,
) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/payments/webhook", wc.HandleWebhook)

	auth := middleware.AuthMiddleware(jwtSecret)

	payments := r.Group("/payments")
	payments.Use(auth)
	payments.POST("/orders", limiter.Middleware(), pc.CreateOrder)
	payments.POST("/verify", pc.VerifyPayment)
	payments.POST("/reconcile", pc.Reconcile)
	payments.POST("/checkout/failed", pc.CheckoutFailed)
	payments.POST("/checkout/dismissed", pc.CheckoutDismissed)
	payments.GET("/status/:order_id", pc.GetPaymentStatus)

	workflows := r.Group("/workflows")
	workflows.Use(auth)
	workflows.POST("/certificates", limiter.Middleware(), fc.ApplyCertificate)
	workflows.POST("/grievances/:id/upgrade", limiter.Middleware(), fc.UpgradeGrievance)
	workflows.GET("/applications", fc.ListApplications)

	api := r.Group("/api")
	api.Use(auth)
	api.Any("/grievances/*path", xc.Forward("/grievances"))
	api.Any("/certificates/*path", xc.Forward("/certificates"))
	api.Any("/bills/*path", xc.Forward("/bills"))
	api.Any("/revenue/*path", xc.Forward("/revenue"))
}
