package main

import (
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"trainingportal-backend/internal/config"
	"trainingportal-backend/internal/jobs"
	"trainingportal-backend/internal/logger"
	"trainingportal-backend/internal/repository/postgres"
	"trainingportal-backend/internal/scheduler"
	"trainingportal-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit ('payment-reminders', 'pending-digest', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Training Portal Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db, postgres.TxOptionsFromConfig(cfg.Database))
	repos := service.Repositories{
		Applications: store.ApplicationRepository,
		Users:        store.UserRepository,
		Training:     store.TrainingRepository,
		Invoices:     store.InvoiceRepository,
		Payments:     store.PaymentRepository,
	}

	// Initialize Services
	var sender service.Sender
	if cfg.Email.Provider == "sendgrid" {
		sender = service.NewSendGridSender(cfg.Email.SendGridAPIKey, cfg.Email.From, cfg.Email.FromName)
	} else {
		sender = service.NewSMTPSender(cfg.SMTP, cfg.Email.From, cfg.Email.FromName)
	}
	emailService := service.NewEmailService(sender, cfg.Email.FromName)

	jobRunner := jobs.NewJobRunner(repos, emailService, cfg)

	// Run once mode
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		switch *runOnce {
		case "payment-reminders":
			jobRunner.SendPaymentReminders()
		case "pending-digest":
			jobRunner.SendPendingDigest()
		case "all":
			jobRunner.RunAll()
		default:
			log.Fatalf("Unknown job: %s", *runOnce)
		}
		logger.Info("Job completed, exiting")
		return
	}

	// Start scheduler
	sched, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to register jobs: %v", err)
	}
	sched.Start()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig)

	sched.Stop()
	logger.Info("Cronjob runner stopped")
}
