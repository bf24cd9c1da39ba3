package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/examgate/examgate/internal/aireview"
	api "github.com/examgate/examgate/internal/api/http"
	"github.com/examgate/examgate/internal/audit"
	auth "github.com/examgate/examgate/internal/auth/middleware"
	"github.com/examgate/examgate/internal/config"
	"github.com/examgate/examgate/internal/db"
	"github.com/examgate/examgate/internal/exam"
	"github.com/examgate/examgate/internal/judge"
	"github.com/examgate/examgate/internal/rbac"
)

func main() {
	cfg := config.FromEnv()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := exam.NewSQLStore(dbh, cfg.DBDriver)

	// --- Engine ---
	runner := judge.NewRunner(judge.NewHTTPExecutor(cfg.ExecutorURL, cfg.ExecutorTimeout))
	eventLog := audit.NewLog(dbh)
	opts := []exam.Option{exam.WithEventSink(eventLog)}
	if cfg.OpenAIKey != "" {
		opts = append(opts, exam.WithReviewer(aireview.New(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.OpenAIModel)))
	}
	svc := exam.NewService(store, runner, opts...)

	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Admin: exam import, publish, invites, users, audit
		pr.With(rbac.Require("exam:create")).
			Post("/exams", api.UploadExamHandler(store))
		pr.With(rbac.Require("exam:publish")).
			Post("/exams/{examID}/publish", api.PublishExamHandler(svc))
		pr.With(rbac.Require("candidate:invite")).
			Post("/exams/{examID}/candidates", api.InviteCandidatesHandler(store))
		pr.With(rbac.Require("users:manage")).
			Post("/users", api.BulkUpsertUsersHandler(dbh))
		pr.With(rbac.Require("users:manage")).
			Get("/users", api.ListUsersHandler(dbh))
		pr.With(rbac.Require("audit:view")).
			Get("/events", api.ListEventsHandler(eventLog))

		// Candidate/Reviewer: fetch exam (answer keys stripped for candidates)
		pr.With(rbac.Require("exam:view")).
			Get("/exams/{examID}", api.GetExamHandler(store))

		// Candidate session flow
		pr.With(rbac.Require("session:start")).
			Post("/exams/{examID}/session", api.StartSessionHandler(svc))
		pr.With(rbac.Require("session:submit")).
			Post("/exams/{examID}/session/submit", api.SubmitSessionHandler(svc))
		pr.With(rbac.Require("session:start")).
			Post("/exams/{examID}/session/cheating", api.ReportCheatingHandler(svc))
		pr.With(rbac.Require("answer:save")).
			Post("/exams/{examID}/questions/{questionID}/mcq", api.SaveMcqAnswerHandler(svc))
		pr.With(rbac.Require("answer:save")).
			Post("/exams/{examID}/written", api.SaveWrittenAnswersHandler(svc))
		pr.With(rbac.Require("answer:save")).
			Post("/exams/{examID}/questions/{questionID}/problem", api.SaveProblemAnswerHandler(svc))
		pr.With(rbac.Require("scoreboard:view-own")).
			Get("/exams/{examID}/scoreboard", api.GetMyScoreboardHandler(svc))

		// Reviewer flow
		pr.With(rbac.Require("review:apply")).
			Post("/exams/{examID}/candidates/{accountID}/written/{submissionID}/review", api.ReviewWrittenHandler(svc))
		pr.With(rbac.Require("review:apply")).
			Post("/exams/{examID}/candidates/{accountID}/problems/{submissionID}/review", api.ReviewProblemHandler(svc))
		pr.With(rbac.Require("review:suggest")).
			Get("/written-submissions/{submissionID}/suggestion", api.SuggestReviewHandler(svc))
		pr.With(rbac.Require("scoreboard:view-all")).
			Get("/exams/{examID}/candidates/{accountID}/scoreboard", api.GetScoreboardHandler(svc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
