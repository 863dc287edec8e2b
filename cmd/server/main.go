package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/fintecol/prestamos-engine/internal/audit"
	"github.com/fintecol/prestamos-engine/internal/config"
	"github.com/fintecol/prestamos-engine/internal/handler"
	"github.com/fintecol/prestamos-engine/internal/notification"
	"github.com/fintecol/prestamos-engine/internal/repository"
	"github.com/fintecol/prestamos-engine/internal/service"
	"github.com/fintecol/prestamos-engine/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	clientRepo := repository.NewClientRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	installmentRepo := repository.NewInstallmentRepository(db)
	prepaymentRepo := repository.NewPrepaymentRepository(db)

	// Initialize services
	resolver := service.NewStatusResolver(loanRepo, installmentRepo, prepaymentRepo, redisClient)
	mailer := notification.NewMailer(clientRepo, loanRepo, installmentRepo, cfg)
	auditLog := audit.NewCSVLogger(cfg.Audit.PrepaymentLogPath)

	clientService := service.NewClientService(clientRepo, loanRepo)
	loanService := service.NewLoanService(clientRepo, loanRepo, installmentRepo, prepaymentRepo, resolver, mailer, cfg)
	paymentService := service.NewPaymentService(clientRepo, loanRepo, installmentRepo, prepaymentRepo, resolver, auditLog, cfg)

	clientHandler := handler.NewClientHandler(clientService)
	loanHandler := handler.NewLoanHandler(loanService, paymentService, resolver)
	installmentHandler := handler.NewInstallmentHandler(paymentService, resolver)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Setup routes
	router := setupRoutes(clientHandler, loanHandler, installmentHandler, healthHandler)

	// Start server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(
	clientHandler *handler.ClientHandler,
	loanHandler *handler.LoanHandler,
	installmentHandler *handler.InstallmentHandler,
	healthHandler *handler.HealthHandler,
) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)
	router.Use(response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(response.JSONMiddleware)

	api.HandleFunc("/clientes", clientHandler.Create).Methods("POST")
	api.HandleFunc("/clientes", clientHandler.List).Methods("GET")
	api.HandleFunc("/clientes/{clientId}", clientHandler.Get).Methods("GET")
	api.HandleFunc("/clientes/{clientId}", clientHandler.Update).Methods("PUT")
	api.HandleFunc("/clientes/{clientId}", clientHandler.Delete).Methods("DELETE")

	api.HandleFunc("/prestamos", loanHandler.CreateAuto).Methods("POST")
	api.HandleFunc("/prestamos/manual", loanHandler.CreateManual).Methods("POST")
	api.HandleFunc("/prestamos", loanHandler.List).Methods("GET")
	api.HandleFunc("/prestamos/{loanId}", loanHandler.Get).Methods("GET")
	api.HandleFunc("/prestamos/{loanId}", loanHandler.Update).Methods("PUT")
	api.HandleFunc("/prestamos/{loanId}/replan", loanHandler.Replan).Methods("PUT")
	api.HandleFunc("/prestamos/{loanId}/plan", loanHandler.Plan).Methods("GET")
	api.HandleFunc("/prestamos/{loanId}/estado", loanHandler.Status).Methods("GET")
	api.HandleFunc("/prestamos/{loanId}/abonos", loanHandler.Prepayments).Methods("GET")

	api.HandleFunc("/cuotas", installmentHandler.List).Methods("GET")
	api.HandleFunc("/cuotas/resumen-prestamos", installmentHandler.Summary).Methods("GET")
	api.HandleFunc("/cuotas/{cuotaId}", installmentHandler.Get).Methods("GET")
	api.HandleFunc("/cuotas/{cuotaId}/pago", installmentHandler.RecordPayment).Methods("POST")
	api.HandleFunc("/cuotas/{cuotaId}/abono-capital", installmentHandler.RecordPrepayment).Methods("POST")

	return router
}
