package api

import (
	"database/sql"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spendlog/expense-api/internal/api/handlers"
	"github.com/spendlog/expense-api/internal/auth"
	"github.com/spendlog/expense-api/internal/config"
	"github.com/spendlog/expense-api/internal/services"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	cfg *config.Config,
	db *sql.DB,
	tokens *auth.TokenManager,
	userService services.UserServiceProvider,
	categoryService services.CategoryServiceProvider,
	expenseService services.ExpenseServiceProvider,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, cfg.AppName, cfg.AppVersion)
	authHandler := handlers.NewAuthHandler(userService, tokens)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	expenseHandler := handlers.NewExpenseHandler(expenseService)

	// Health probes
	r.Get("/", healthHandler.Live)
	r.Get("/db-ping", healthHandler.DBPing)

	// Authentication endpoints
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.With(tokens.Middleware()).Get("/me", authHandler.Me)
	})

	// Owner-scoped resources, all behind the bearer token
	r.Route("/categories", func(r chi.Router) {
		r.Use(tokens.Middleware())
		r.Get("/", categoryHandler.List)
		r.Post("/", categoryHandler.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", categoryHandler.Get)
			r.Put("/", categoryHandler.Update)
			r.Delete("/", categoryHandler.Delete)
		})
	})

	r.Route("/expenses", func(r chi.Router) {
		r.Use(tokens.Middleware())
		r.Get("/", expenseHandler.List)
		r.Post("/", expenseHandler.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", expenseHandler.Get)
			r.Put("/", expenseHandler.Update)
			r.Delete("/", expenseHandler.Delete)
		})
	})

	return r
}
