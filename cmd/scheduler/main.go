package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/fintecol/prestamos-engine/internal/config"
	"github.com/fintecol/prestamos-engine/internal/notification"
	"github.com/fintecol/prestamos-engine/internal/repository"
	"github.com/fintecol/prestamos-engine/internal/service"
	"github.com/fintecol/prestamos-engine/pkg/utils"
)

const jobTimeout = 10 * time.Minute

func main() {
	log.Println("Starting prestamos scheduler...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	clientRepo := repository.NewClientRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	installmentRepo := repository.NewInstallmentRepository(db)
	prepaymentRepo := repository.NewPrepaymentRepository(db)

	resolver := service.NewStatusResolver(loanRepo, installmentRepo, prepaymentRepo, redisClient)
	mailer := notification.NewMailer(clientRepo, loanRepo, installmentRepo, cfg)

	jobs := &jobRunner{
		loanRepo:        loanRepo,
		installmentRepo: installmentRepo,
		resolver:        resolver,
		notifier:        mailer,
		daysAhead:       cfg.Scheduler.ReminderDaysAhead,
	}

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds())
	setupCronJobs(c, cfg, jobs)

	// Start the scheduler
	c.Start()
	log.Println("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	c.Stop()
	log.Println("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, jobs *jobRunner) {
	// Daily sweep that re-derives loan and installment statuses
	_, err := c.AddFunc(cfg.Scheduler.StatusRefreshSpec, jobs.refreshStatuses)
	if err != nil {
		log.Printf("Error scheduling status refresh job: %v", err)
	}

	// Daily reminder emails for installments about to fall due
	_, err = c.AddFunc(cfg.Scheduler.ReminderSpec, jobs.sendReminders)
	if err != nil {
		log.Printf("Error scheduling reminder job: %v", err)
	}

	log.Println("Cron jobs scheduled successfully")
}

type jobRunner struct {
	loanRepo        repository.LoanRepository
	installmentRepo repository.InstallmentRepository
	resolver        *service.StatusResolver
	notifier        service.Notifier
	daysAhead       int
}

// refreshStatuses recomputes every loan's derived status so the denormalized
// estado columns track the passage of due dates.
func (j *jobRunner) refreshStatuses() {
	log.Println("Running daily status refresh job...")

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	ids, err := j.loanRepo.ListIDs(ctx)
	if err != nil {
		log.Printf("status refresh: listing loans failed: %v", err)
		return
	}

	refreshed, failed := 0, 0
	for _, id := range ids {
		if _, err := j.resolver.Refresh(ctx, id); err != nil {
			log.Printf("status refresh: loan %s: %v", id, err)
			failed++
			continue
		}
		refreshed++
	}
	log.Printf("Status refresh done: %d refreshed, %d failed", refreshed, failed)
}

// sendReminders emails borrowers whose installments fall due within the
// configured window.
func (j *jobRunner) sendReminders() {
	log.Println("Running payment reminder job...")

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	from := utils.Midnight(time.Now())
	to := from.AddDate(0, 0, j.daysAhead)

	installments, err := j.installmentRepo.ListDueBetween(ctx, from, to)
	if err != nil {
		log.Printf("reminders: listing due installments failed: %v", err)
		return
	}

	for _, installment := range installments {
		j.notifier.NotifyInstallmentDue(installment)
	}
	log.Printf("Reminder job done: %d installment(s) notified", len(installments))
}
