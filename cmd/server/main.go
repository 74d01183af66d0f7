package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"trafikskolan/internal/api"
	"trafikskolan/internal/app"
	"trafikskolan/internal/auth"
	"trafikskolan/internal/config"
	"trafikskolan/internal/repository"
	"trafikskolan/internal/service"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	database, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	if err := database.Ping(); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	migrator, err := app.NewMigrator(database, cfg.MigrationsDir)
	if err != nil {
		logger.Fatal("failed to init migrator", zap.Error(err))
	}
	if err := migrator.Run(context.Background()); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	if version, err := migrator.Version(context.Background()); err == nil {
		logger.Info("database migrated", zap.Int64("version", version))
	}

	loc, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		loc = time.FixedZone("CET", 1*60*60)
	}

	// Repositories
	bookingRepo := repository.NewBookingRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	creditRepo := repository.NewCreditRepository(database)
	userRepo := repository.NewUserRepository(database)
	scheduleRepo := repository.NewScheduleRepository(database)
	settingsRepo := repository.NewSettingsRepository(database)
	jobRepo := repository.NewJobRepository(database)

	// Services
	sender := service.NewSenderService(cfg, userRepo, logger)
	bookingSvc := service.NewBookingService(bookingRepo, scheduleRepo, creditRepo, sender, logger, loc)
	sessionSvc := service.NewSessionService(sessionRepo, creditRepo, sender, logger)
	creditSvc := service.NewCreditService(creditRepo, logger)
	scheduleSvc := service.NewScheduleService(scheduleRepo, logger)
	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiry)
	settings := service.NewSettingsProvider(settingsRepo, cfg.SettingsCacheTTL)
	jobSvc := service.NewJobService(jobRepo, sender, logger)

	swish := service.NewSwishClient(cfg.SwishBaseURL, cfg.SwishPayeeAlias, cfg.SwishCallbackURL, logger)
	qliro := service.NewQliroClient(cfg.QliroBaseURL, cfg.QliroAPIKey, cfg.QliroAPISecret, cfg.QliroCallbackURL, logger)
	paymentSvc := service.NewPaymentService(bookingRepo, sessionRepo, scheduleRepo, swish, qliro, sender, logger)

	// Handlers
	bookingHandler := api.NewBookingHandler(bookingSvc)
	sessionHandler := api.NewSessionHandler(sessionSvc)
	paymentHandler := api.NewPaymentHandler(paymentSvc, logger)
	authHandler := api.NewAuthHandler(authSvc, creditSvc)
	lessonTypeHandler := api.NewLessonTypeHandler(scheduleSvc)
	adminHandler := api.NewAdminHandler(bookingSvc, sessionSvc, scheduleSvc, creditSvc, authSvc, settings)

	r := mux.NewRouter()
	authMW := auth.Middleware(cfg.JWTSecret)

	// Public endpoints
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/lesson-types", lessonTypeHandler.ListLessonTypes).Methods("GET")
	r.HandleFunc("/api/slots", bookingHandler.AvailableSlots).Methods("GET")
	r.HandleFunc("/api/sessions", sessionHandler.ListSessions).Methods("GET")
	r.HandleFunc("/api/sessions/{id}/bookings", sessionHandler.ReserveSeat).Methods("POST")
	r.HandleFunc("/api/group-bookings/{code}", sessionHandler.GetGroupBooking).Methods("GET")
	r.HandleFunc("/api/group-bookings/{code}", sessionHandler.CancelSeat).Methods("DELETE")
	r.HandleFunc("/api/group-bookings/{code}/payments", paymentHandler.StartGroupBookingPayment).Methods("POST")
	r.HandleFunc("/api/bookings/code/{code}", bookingHandler.GetBookingByCode).Methods("GET")

	// Gateway callbacks
	r.HandleFunc("/api/payments/swish/callback", paymentHandler.SwishCallback).Methods("POST")
	r.HandleFunc("/api/payments/qliro/callback", paymentHandler.QliroCallback).Methods("POST")

	// Authenticated endpoints
	user := r.PathPrefix("/api").Subrouter()
	user.Use(authMW)
	user.HandleFunc("/bookings", bookingHandler.CreateBooking).Methods("POST")
	user.HandleFunc("/bookings", bookingHandler.ListMyBookings).Methods("GET")
	user.HandleFunc("/bookings/{id}", bookingHandler.GetBooking).Methods("GET")
	user.HandleFunc("/bookings/{id}", bookingHandler.Reschedule).Methods("PUT")
	user.HandleFunc("/bookings/{id}", bookingHandler.CancelBooking).Methods("DELETE")
	user.HandleFunc("/bookings/{id}/payments", paymentHandler.StartBookingPayment).Methods("POST")
	user.HandleFunc("/me/credits", authHandler.MyCredits).Methods("GET")

	// Staff endpoints
	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(authMW, auth.RequireRole("admin", "teacher"))
	admin.HandleFunc("/bookings", adminHandler.ListBookings).Methods("GET")
	admin.HandleFunc("/slot-templates", adminHandler.ListTemplates).Methods("GET")
	admin.HandleFunc("/slot-templates", adminHandler.CreateTemplate).Methods("POST")
	admin.HandleFunc("/slot-templates/{id}", adminHandler.UpdateTemplate).Methods("PUT")
	admin.HandleFunc("/slot-templates/{id}", adminHandler.DeleteTemplate).Methods("DELETE")
	admin.HandleFunc("/blocked-slots", adminHandler.ListBlocked).Methods("GET")
	admin.HandleFunc("/blocked-slots", adminHandler.CreateBlocked).Methods("POST")
	admin.HandleFunc("/blocked-slots/{id}", adminHandler.DeleteBlocked).Methods("DELETE")
	admin.HandleFunc("/sessions", adminHandler.CreateSession).Methods("POST")
	admin.HandleFunc("/sessions/{id}", adminHandler.UpdateSession).Methods("PUT")
	admin.HandleFunc("/sessions/{id}/bookings", adminHandler.ListSessionBookings).Methods("GET")
	admin.HandleFunc("/group-bookings/{id}/move", sessionHandler.MoveSeat).Methods("POST")
	admin.HandleFunc("/users", adminHandler.ListUsers).Methods("GET")
	admin.HandleFunc("/users/{id}/credits", adminHandler.ListUserCredits).Methods("GET")
	admin.HandleFunc("/credits", adminHandler.AddCredits).Methods("POST")
	admin.HandleFunc("/settings", adminHandler.GetSettings).Methods("GET")
	admin.HandleFunc("/settings", adminHandler.SetSetting).Methods("PUT")

	adminOnly := r.PathPrefix("/api/admin").Subrouter()
	adminOnly.Use(authMW, auth.RequireRole("admin"))
	adminOnly.HandleFunc("/users", adminHandler.CreateStaffUser).Methods("POST")

	// Scheduled maintenance
	c := cron.New()
	c.AddFunc("@every 5m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := jobSvc.PurgeTempBookings(ctx, cfg.TempBookingTimeout); err != nil {
			logger.Error("purge temp bookings failed", zap.Error(err))
		}
	})
	c.AddFunc("@every 15m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := jobSvc.CompletePastBookings(ctx); err != nil {
			logger.Error("complete past bookings failed", zap.Error(err))
		}
	})
	c.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := jobSvc.SendReminders(ctx); err != nil {
			logger.Error("send reminders failed", zap.Error(err))
		}
	})
	c.Start()
	defer c.Stop()

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(r)

	logger.Info("server listening", zap.String("addr", cfg.HTTPAddr))
	if err := http.ListenAndServe(cfg.HTTPAddr, corsHandler); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
