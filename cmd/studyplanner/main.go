package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"study-planner/internal/bot"
	"study-planner/internal/config"
	"study-planner/internal/repository"
	"study-planner/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	blobs := repository.NewBlobStore(db)
	storage := service.StorageConfig{
		Local:         repository.NewLocalTaskRepository(blobs),
		LocalProfiles: repository.NewLocalProfileRepository(blobs),
	}

	fs, err := repository.ConnectFirestore(ctx, cfg.FirebaseCredentials, cfg.FirebaseProjectID)
	if err != nil {
		log.Printf("[warn] remote store unavailable, using local storage only: %v", err)
	} else {
		defer fs.Close()
		storage.Remote = repository.NewFirestoreTaskRepository(fs)
		storage.RemoteProfiles = repository.NewFirestoreProfileRepository(fs)
		storage.RemoteAvailable = true
		log.Println("[info] remote store connected")
	}

	taskStore := service.NewTaskStore(storage)
	ledger := service.NewLedger(storage, cfg.Location)
	subjectSvc := service.NewSubjectService(taskStore)
	reminderSvc := service.NewReminderService(cfg.Location)

	telegramBot, err := bot.New(cfg.TelegramToken, taskStore, ledger, subjectSvc, reminderSvc, &cfg)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	scheduler := service.NewSchedulerService(cfg.Location)
	if _, err := scheduler.ScheduleWindow(cfg.ReminderInterval, func(from, to time.Time) {
		jobCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := telegramBot.SendDueReminders(jobCtx, from, to); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("reminders: %v", err)
		}
	}); err != nil {
		log.Fatalf("schedule reminders: %v", err)
	}
	if _, err := scheduler.ScheduleDaily(cfg.ReportTime, func() {
		jobCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		if err := telegramBot.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("report: %v", err)
		}
	}); err != nil {
		log.Fatalf("schedule reports: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Println("Study planner bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
