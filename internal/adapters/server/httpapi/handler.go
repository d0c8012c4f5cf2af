// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hylla/shopfloor/internal/adapters/server/common"
	"github.com/hylla/shopfloor/internal/domain"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 4 << 20

// defaultRequestTimeout bounds one API request.
const defaultRequestTimeout = 30 * time.Second

// Config controls API behavior that varies by deployment.
type Config struct {
	// SecureCookies marks the session cookie Secure.
	SecureCookies  bool
	RequestTimeout time.Duration
}

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	production common.ProductionService
	auth       common.AuthService
	cfg        Config
	router     chi.Router
}

// NewHandler constructs one HTTP API adapter over production and auth services.
func NewHandler(cfg Config, production common.ProductionService, auth common.AuthService) *Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	h := &Handler{production: production, auth: auth, cfg: cfg}
	h.router = h.routes()
	return h
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes builds the chi route tree.
func (h *Handler) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(h.cfg.RequestTimeout))
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, APIError{Code: "not_found", Message: "endpoint not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, APIError{Code: "method_not_allowed", Message: "method not allowed"})
	})

	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)
		r.Get("/auth/me", h.handleMe)

		r.With(requirePermission(domain.PermDashboard)).Get("/dashboard", h.handleDashboard)

		r.Route("/users", func(r chi.Router) {
			r.Use(requirePermission(domain.PermConfig))
			r.Get("/", h.handleListUsers)
			r.Post("/", h.handleCreateUser)
			r.Get("/{userID}", h.handleGetUser)
			r.Patch("/{userID}", h.handleUpdateUser)
			r.Delete("/{userID}", h.handleDeleteUser)
		})

		r.Route("/clients", func(r chi.Router) {
			r.Use(requirePermission(domain.PermClients))
			r.Get("/", h.handleListClients)
			r.Post("/", h.handleCreateClient)
			r.Get("/{clientID}", h.handleGetClient)
			r.Put("/{clientID}", h.handleUpdateClient)
			r.Delete("/{clientID}", h.handleDeleteClient)
		})

		r.Route("/products", func(r chi.Router) {
			r.Use(requirePermission(domain.PermProducts))
			r.Get("/", h.handleListProducts)
			r.Post("/", h.handleCreateProduct)
			r.Get("/{productID}", h.handleGetProduct)
			r.Put("/{productID}", h.handleUpdateProduct)
			r.Delete("/{productID}", h.handleDeleteProduct)
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(requirePermission(domain.PermReports)).Get("/{orderID}/report", h.handleOrderReport)
			r.Group(func(r chi.Router) {
				r.Use(requirePermission(domain.PermOrders))
				r.Get("/", h.handleListOrders)
				r.Post("/", h.handleCreateOrder)
				r.Get("/{orderID}", h.handleGetOrder)
				r.Patch("/{orderID}/status", h.handleSetOrderStatus)
				r.Post("/{orderID}/archive", h.handleArchiveOrder)
				r.Post("/{orderID}/restore", h.handleRestoreOrder)
				r.Delete("/{orderID}", h.handleDeleteOrder)
			})
		})

		r.With(requirePermission(domain.PermRuns)).Get("/stage-templates", h.handleStageTemplates)

		r.Route("/runs", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(requirePermission(domain.PermRuns))
				r.Get("/", h.handleListRuns)
				r.Post("/", h.handleCreateRun)
				r.Get("/{runID}", h.handleGetRun)
				r.Delete("/{runID}", h.handleDeleteRun)
				r.Post("/{runID}/publish", h.handlePublishRun)
				r.Post("/{runID}/unpublish", h.handleUnpublishRun)
				r.Get("/{runID}/events", h.handleListStageEvents)
				r.Post("/{runID}/items/{itemID}/stages", h.handleAddStage)
			})
			r.Route("/{runID}/items/{itemID}/stages/{stageID}", func(r chi.Router) {
				r.With(requirePermission(domain.PermRuns)).Put("/", h.handleUpdateStage)
				r.With(requirePermission(domain.PermRuns)).Delete("/", h.handleRemoveStage)
				// Floor operators drive timers and checklists from the board.
				r.Group(func(r chi.Router) {
					r.Use(requirePermission(domain.PermRuns, domain.PermKanban))
					r.Post("/checklist", h.handleAddChecklistItem)
					r.Post("/checklist/mark-all", h.handleMarkAllChecklist)
					r.Post("/checklist/{checkID}/toggle", h.handleToggleChecklistItem)
					r.Patch("/checklist/{checkID}", h.handleRenameChecklistItem)
					r.Delete("/checklist/{checkID}", h.handleRemoveChecklistItem)
					r.Post("/{command}", h.handleStageCommand)
				})
			})
		})

		r.Route("/board", func(r chi.Router) {
			r.Use(requirePermission(domain.PermKanban))
			r.Get("/", h.handleBoard)
			r.Post("/move", h.handleMoveCard)
		})

		r.Route("/snapshot", func(r chi.Router) {
			r.Use(requirePermission(domain.PermConfig))
			r.Get("/", h.handleExportSnapshot)
			r.Post("/", h.handleImportSnapshot)
		})
	})
	return r
}
