package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	httpapi "trainingportal-backend/internal/api/http"
	"trainingportal-backend/internal/client"
	"trainingportal-backend/internal/config"
	"trainingportal-backend/internal/logger"
	"trainingportal-backend/internal/render"
	"trainingportal-backend/internal/repository/postgres"
	"trainingportal-backend/internal/security"
	"trainingportal-backend/internal/service"
	"trainingportal-backend/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Training Portal Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "grpc_address", cfg.GetGRPCAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	logger.Info("Gateway configuration", "base_url", cfg.Gateway.BaseURL, "production", cfg.Gateway.IsProduction())

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db, postgres.TxOptionsFromConfig(cfg.Database))
	repos := service.Repositories{
		Applications:  store.ApplicationRepository,
		Users:         store.UserRepository,
		Organizations: store.OrganizationRepository,
		Training:      store.TrainingRepository,
		Invoices:      store.InvoiceRepository,
		Documents:     store.DocumentRepository,
		Payments:      store.PaymentRepository,
		Workflow:      store.WorkflowRepository,
	}

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	// Initialize Storage Service
	ctx := context.Background()
	storageService, serveFiles, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		logger.Error("Failed to initialize storage", "type", cfg.Storage.Type, "error", err)
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize Services
	emailSvc := service.NewEmailService(newSender(cfg), cfg.Email.FromName)
	noteSvc := service.NewNotificationService(store.NotificationRepository)
	renderer := render.NewPDFRenderer(cfg.Render)
	gateway := client.NewPaymentGatewayClient(cfg.Gateway)

	approvalSvc := service.NewApprovalService(repos, renderer, storageService, gateway, emailSvc, noteSvc)
	settlementSvc := service.NewSettlementService(repos, renderer, storageService, emailSvc, noteSvc)
	applicationSvc := service.NewApplicationService(repos, renderer, storageService, emailSvc, noteSvc)

	// Set up HTTP server
	router := httpapi.NewRouter(httpapi.Handlers{
		Applications:  httpapi.NewApplicationHandler(approvalSvc, applicationSvc),
		Payments:      httpapi.NewPaymentHandler(settlementSvc),
		Documents:     httpapi.NewDocumentHandler(applicationSvc),
		Notifications: httpapi.NewNotificationHandler(noteSvc),
		ServeFiles:    serveFiles,
	}, tokenManager, db)

	httpServer := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Set up gRPC health server
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	// Register reflection service for grpcurl
	reflection.Register(grpcServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	if cfg.Server.GRPCPort > 0 {
		lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
			log.Fatalf("Failed to listen: %v", err)
		}
		go func() {
			logger.Info("gRPC health server listening", "address", cfg.GetGRPCAddress())
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "error", err)
			}
		}()
	}

	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr, "serve_files", serveFiles)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig)

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("Server stopped")
}

// newStorage selects the object store. The local store is served back over
// HTTP, so the second return reports whether /files routes are needed.
func newStorage(ctx context.Context, cfg config.StorageConfig) (storage.StorageInterface, bool, error) {
	switch cfg.Type {
	case "firebase":
		logger.Info("Using Firebase storage", "bucket", cfg.Bucket)
		s, err := storage.NewFirebaseStorageService(ctx, cfg.Bucket, cfg.CredentialsFile)
		return s, false, err
	default:
		logger.Info("Using mock storage (local filesystem)", "upload_dir", cfg.UploadDir)
		s, err := storage.NewMockStorageService(cfg.BaseURL, cfg.UploadDir)
		return s, true, err
	}
}

func newSender(cfg *config.Config) service.Sender {
	if cfg.Email.Provider == "sendgrid" {
		logger.Info("Using SendGrid email provider")
		return service.NewSendGridSender(cfg.Email.SendGridAPIKey, cfg.Email.From, cfg.Email.FromName)
	}
	logger.Info("Using SMTP email provider", "host", cfg.SMTP.Host, "port", cfg.SMTP.Port)
	return service.NewSMTPSender(cfg.SMTP, cfg.Email.From, cfg.Email.FromName)
}
