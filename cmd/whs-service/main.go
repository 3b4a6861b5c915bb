package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/worksafe/worksafe-backend/internal/whs/consumers"
	"github.com/worksafe/worksafe-backend/internal/whs/events"
	"github.com/worksafe/worksafe-backend/internal/whs/handler"
	"github.com/worksafe/worksafe-backend/internal/whs/postgres"
	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/internal/whs/service"
	"github.com/worksafe/worksafe-backend/pkg/config"
	"github.com/worksafe/worksafe-backend/pkg/database"
	"github.com/worksafe/worksafe-backend/pkg/httputil"
	"github.com/worksafe/worksafe-backend/pkg/logger"
	"github.com/worksafe/worksafe-backend/pkg/messaging"
	"github.com/worksafe/worksafe-backend/pkg/migrate"
	"github.com/worksafe/worksafe-backend/pkg/session"
)

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation("whs-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("whs-service", cfg.Server.Environment)
	log.Info().Msg("starting WHS Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Apply pending migrations
	applied, err := migrate.Run(context.Background(), db, postgres.Migrations(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	if applied > 0 {
		log.Info().Int("applied", applied).Msg("migrations applied")
	}

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	exceptionRepo := repository.NewExceptionRepository(db)
	checkinRepo := repository.NewCheckinRepository(db)
	incidentRepo := repository.NewIncidentRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	rehabRepo := repository.NewRehabRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	transcriptionRepo := repository.NewTranscriptionRepository(db)

	// Initialize session manager
	sessions := session.NewManager(&cfg.Session)

	// Initialize services
	authService := service.NewAuthService(userRepo, sessions, log)
	teamService := service.NewTeamService(teamRepo, userRepo, log)
	caseService := service.NewCaseService(exceptionRepo, scheduleRepo, userRepo, publisher, log)
	scheduleService := service.NewScheduleService(scheduleRepo, publisher, log)
	checkinService := service.NewCheckinService(checkinRepo, publisher, log)
	incidentService := service.NewIncidentService(incidentRepo, caseService, publisher, log)
	appointmentService := service.NewAppointmentService(appointmentRepo, publisher, log)
	rehabService := service.NewRehabService(rehabRepo, exceptionRepo, publisher, log)
	notificationService := service.NewNotificationService(notificationRepo, log)
	transcriptionService := service.NewTranscriptionService(transcriptionRepo, exceptionRepo, log)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, sessions, log)
	teamHandler := handler.NewTeamHandler(teamService, log)
	caseHandler := handler.NewCaseHandler(caseService, teamService, log)
	scheduleHandler := handler.NewScheduleHandler(scheduleService, log)
	checkinHandler := handler.NewCheckinHandler(checkinService, log)
	incidentHandler := handler.NewIncidentHandler(incidentService, log)
	appointmentHandler := handler.NewAppointmentHandler(appointmentService, log)
	rehabHandler := handler.NewRehabHandler(rehabService, log)
	notificationHandler := handler.NewNotificationHandler(notificationService, log)
	transcriptionHandler := handler.NewTranscriptionHandler(transcriptionService, log)

	// Start notification consumer
	notificationConsumer, err := consumers.NewNotificationConsumer(rmq, notificationService, teamRepo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create notification consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := notificationConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start notification consumer")
	}

	// Optional in-process expiry sweeper (cron owns the sweep by default)
	if cfg.Sweeper.Enabled {
		sweeper := service.NewExpirySweeper(caseService, cfg.Sweeper.Interval, log)
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))

	// CORS with credentials for the browser dashboard
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no session required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "whs-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		// Session required beyond this point
		r.Group(func(r chi.Router) {
			r.Use(httputil.Auth(sessions))

			r.Route("/auth", func(r chi.Router) {
				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)
				r.Post("/register", authHandler.Register)
			})

			// Clinician routes
			r.Route("/clinician", func(r chi.Router) {
				r.Route("/cases", func(r chi.Router) {
					r.Get("/", caseHandler.List)
					r.Get("/{id}", caseHandler.Get)
					r.Patch("/{id}/status", caseHandler.UpdateStatus)
					r.Patch("/{id}/assign-clinician", caseHandler.AssignClinician)
					r.Get("/{id}/transcriptions", transcriptionHandler.ListForCase)
				})
				r.Route("/rehabilitation-plans", func(r chi.Router) {
					r.Post("/", rehabHandler.CreatePlan)
					r.Get("/{id}", rehabHandler.GetPlan)
					r.Get("/{id}/progress", rehabHandler.Progress)
					r.Patch("/{id}/complete", rehabHandler.Complete)
					r.Patch("/{id}/cancel", rehabHandler.Cancel)
				})
				r.Route("/appointments", func(r chi.Router) {
					r.Get("/", appointmentHandler.ListForClinician)
					r.Post("/", appointmentHandler.Schedule)
					r.Get("/{id}", appointmentHandler.Get)
					r.Patch("/{id}/cancel", appointmentHandler.Cancel)
					r.Patch("/{id}/complete", appointmentHandler.Complete)
				})
				r.Post("/transcriptions", transcriptionHandler.Create)
			})

			// Supervisor routes
			r.Route("/supervisor", func(r chi.Router) {
				r.Route("/cases", func(r chi.Router) {
					r.Get("/", caseHandler.List)
					r.Post("/", caseHandler.Create)
					r.Get("/{id}", caseHandler.Get)
					r.Patch("/{id}/status", caseHandler.UpdateStatus)
					r.Patch("/{id}/assign-to-whs", caseHandler.AssignToWHS)
				})
				r.Route("/incidents", func(r chi.Router) {
					r.Get("/", incidentHandler.List)
					r.Post("/", incidentHandler.Report)
					r.Get("/{id}", incidentHandler.Get)
					r.Patch("/{id}/assign-to-whs", incidentHandler.AssignToWHS)
					r.Patch("/{id}/close", incidentHandler.Close)
				})
				r.Route("/schedules", func(r chi.Router) {
					r.Post("/", scheduleHandler.Create)
					r.Get("/effective", scheduleHandler.ListEffective)
					r.Delete("/{id}", scheduleHandler.Deactivate)
				})
				r.Route("/teams", func(r chi.Router) {
					r.Get("/", teamHandler.ListSupervised)
					r.Get("/{id}", teamHandler.Get)
					r.Get("/{id}/members", teamHandler.Members)
					r.Get("/{teamID}/checkins", checkinHandler.Team)
				})
			})

			// Team leader routes
			r.Route("/team-leader", func(r chi.Router) {
				r.Get("/team", teamHandler.GetMine)
				r.Route("/cases", func(r chi.Router) {
					r.Get("/", caseHandler.List)
					r.Post("/", caseHandler.Create)
				})
				r.Route("/incidents", func(r chi.Router) {
					r.Get("/", incidentHandler.List)
					r.Post("/", incidentHandler.Report)
				})
				r.Get("/teams/{teamID}/checkins", checkinHandler.Team)
			})

			// Worker routes
			r.Route("/worker", func(r chi.Router) {
				r.Get("/case", caseHandler.GetMine)
				r.Route("/checkins", func(r chi.Router) {
					r.Get("/", checkinHandler.History)
					r.Post("/", checkinHandler.Submit)
					r.Get("/today", checkinHandler.Today)
				})
				r.Post("/warm-up", checkinHandler.CompleteWarmUp)
				r.Get("/schedules", scheduleHandler.ListMine)
				r.Route("/appointments", func(r chi.Router) {
					r.Get("/", appointmentHandler.ListForWorker)
					r.Patch("/{id}/respond", appointmentHandler.Respond)
				})
				r.Route("/rehabilitation-plan", func(r chi.Router) {
					r.Get("/", rehabHandler.MyPlan)
					r.Post("/{id}/progress", rehabHandler.RecordProgress)
				})
			})

			// Notifications (all roles)
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Get("/count", notificationHandler.CountUnread)
				r.Patch("/{id}/read", notificationHandler.MarkRead)
				r.Patch("/read-all", notificationHandler.MarkAllRead)
			})

			// Admin routes
			r.Route("/admin", func(r chi.Router) {
				r.Post("/teams", teamHandler.Create)
				r.Post("/teams/{id}/members", teamHandler.AddMember)
				r.Post("/sweep-expired-cases", caseHandler.SweepExpired)
			})
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
