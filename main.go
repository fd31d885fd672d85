package main

import (
	"context"
	"io"
	"log"
	"time"

	"civic-portal/aws"
	"civic-portal/checkout"
	"civic-portal/clients"
	"civic-portal/config"
	"civic-portal/controllers"
	"civic-portal/database"
	"civic-portal/logger"
	"civic-portal/middleware"
	"civic-portal/models"
	"civic-portal/repository"
	"civic-portal/routes"
	"civic-portal/services"
	"civic-portal/workflow"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("[CivicPortal] Failed to load config: ", err)
	}

	// Optional CloudWatch log shipping, disabled for local runs.
	var cwWriter io.Writer
	if cw, err := aws.NewCloudWatchLogsClient(context.Background(), "civic-portal"); err != nil {
		log.Printf("[CivicPortal] CloudWatch Logs init failed: %v", err)
	} else if cw.IsEnabled() {
		cwWriter = cw
	}

	zapLogger, err := logger.New(cfg.Environment, cwWriter)
	if err != nil {
		log.Fatal("[CivicPortal] Failed to initialize logger: ", err)
	}
	defer zapLogger.Sync()

	db, err := database.ConnectPostgres(zapLogger,
		&models.Payment{},
		&models.WebhookDelivery{},
		&models.CertificateApplication{},
		&models.GrievanceUpgrade{},
	)
	if err != nil {
		log.Fatal("[CivicPortal] Failed to connect to DB: ", err)
	}

	// Missing gateway secrets abort startup here; the payment feature must
	// never be reachable half-configured.
	signatures, err := services.NewSignatureService(cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret)
	if err != nil {
		log.Fatal("[CivicPortal] ", err)
	}

	var snsPublisher aws.SNSPublisher
	if cfg.PaymentSNSTopicARN != "" {
		awsCfg, err := aws.LoadAWSConfig(context.Background())
		if err != nil {
			log.Fatal("[CivicPortal] Failed to load AWS config: ", err)
		}
		snsPublisher = aws.NewSNSClient(awsCfg)
	}

	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		zapLogger.Warn("Redis unavailable, proxy cache disabled")
		redisClient = nil
	}

	paymentRepo := repository.NewGormPaymentRepo(db)
	webhookRepo := repository.NewGormWebhookRepo(db)
	appRepo := repository.NewGormApplicationRepo(db)

	gateway := services.NewRazorpayService(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	backend := clients.NewBackendClient(cfg.BackendBaseURL, cfg.BackendTimeout)

	paymentSvc := services.NewPaymentService(gateway, cfg.RazorpayKeyID, signatures, paymentRepo, zapLogger)
	reconSvc := services.NewReconciliationService(backend, paymentRepo, snsPublisher, cfg.PaymentSNSTopicARN, zapLogger)

	syncWorker := services.NewSyncWorker(paymentRepo, backend, zapLogger)
	go syncWorker.Start()
	defer syncWorker.Stop()

	hosted := checkout.NewHostedProvider()
	runner := workflow.NewRunner(paymentSvc, signatures, reconSvc, hosted, appRepo, zapLogger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger(zapLogger))

	pc := &controllers.PaymentController{
		Payments: paymentSvc,
		Recon:    reconSvc,
		Repo:     paymentRepo,
		Checkout: hosted,
		Logger:   zapLogger,
	}
	wc := &controllers.WebhookController{
		Signatures: signatures,
		Repo:       paymentRepo,
		Deliveries: webhookRepo,
		SNS:        snsPublisher,
		TopicArn:   cfg.PaymentSNSTopicARN,
		Logger:     zapLogger,
	}
	fc := &controllers.WorkflowController{
		Runner: runner,
		Apps:   appRepo,
		Logger: zapLogger,
	}
	xc := &controllers.ProxyController{
		Backend:  backend,
		Cache:    redisClient,
		CacheTTL: 30 * time.Second,
		Logger:   zapLogger,
	}

	limiter := middleware.NewRateLimiter(rate.Limit(5), 10, 5*time.Minute)
	routes.Register(r, pc, wc, fc, xc, cfg.JWTSecret, limiter)

	log.Println("[CivicPortal] Running on port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("[CivicPortal] Server failed: ", err)
	}
}
