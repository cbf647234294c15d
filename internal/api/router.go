package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each component check in GET /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware())
	r.Use(s.bodySizeLimitMiddleware)
	r.Use(s.rateLimit(s.secCfg.RateLimit.RequestsPerMinute))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required, tighter rate limit)
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit(s.secCfg.RateLimit.LoginPerMinute))
			r.Post("/auth/login", s.handleLogin)
			r.Post("/auth/signup", s.handleSignup)
		})

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// The caller's own account
			r.Route("/me", func(r chi.Router) {
				r.Get("/", s.handleGetMe)
				r.Patch("/", s.handleUpdateMe)
				r.Delete("/", s.handleDeleteMe)
				r.Post("/password", s.handleChangePassword)
				r.Post("/logout-all", s.handleLogoutAll)
				r.Get("/workshop", s.handleGetMyWorkshop)
			})

			// Workshops: anyone may create their first one
			r.Route("/workshops", func(r chi.Router) {
				r.Post("/", s.handleCreateWorkshop)
				r.Get("/me", s.handleGetMyWorkshop)
				r.Patch("/me", s.handleUpdateMyWorkshop)

				r.Group(func(r chi.Router) {
					r.Use(s.adminOnly)
					r.Get("/", s.handleListWorkshops)
					r.Route("/{workshopID}", func(r chi.Router) {
						r.Get("/", s.handleGetWorkshop)
						r.Patch("/", s.handleUpdateWorkshop)
						r.Delete("/", s.handleDeleteWorkshop)
					})
				})
			})

			// Customers and their vehicles
			r.Route("/customers", func(r chi.Router) {
				r.Get("/", s.handleListCustomers)
				r.Post("/", s.handleCreateCustomer)

				r.Route("/{customerID}", func(r chi.Router) {
					r.Get("/", s.handleGetCustomer)
					r.Patch("/", s.handleUpdateCustomer)
					r.Delete("/", s.handleDeleteCustomer)
					r.Get("/vehicles", s.handleListVehicles)
					r.Post("/vehicles", s.handleAddVehicle)
				})
			})
			r.Route("/vehicles/{vehicleID}", func(r chi.Router) {
				r.Get("/", s.handleGetVehicle)
				r.Patch("/", s.handleUpdateVehicle)
				r.Delete("/", s.handleDeleteVehicle)
			})

			// Shared catalog
			r.Route("/cars", func(r chi.Router) {
				r.Get("/", s.handleListCars)
				r.Post("/", s.handleCreateCar)

				r.Route("/{carID}", func(r chi.Router) {
					r.Get("/", s.handleGetCar)
					r.With(s.adminOnly).Patch("/", s.handleUpdateCar)
					r.With(s.adminOnly).Delete("/", s.handleDeleteCar)
				})
			})
			r.Route("/parts", func(r chi.Router) {
				r.Get("/", s.handleListParts)
				r.Post("/", s.handleCreatePart)

				r.Route("/{partID}", func(r chi.Router) {
					r.Get("/", s.handleGetPart)
					r.Get("/cars", s.handleListPartCars)

					r.Group(func(r chi.Router) {
						r.Use(s.adminOnly)
						r.Patch("/", s.handleUpdatePart)
						r.Delete("/", s.handleDeletePart)
						r.Post("/cars", s.handleLinkPartCar)
						r.Delete("/cars/{carID}", s.handleUnlinkPartCar)
					})
				})
			})

			// Workers
			r.Route("/workers", func(r chi.Router) {
				r.Get("/", s.handleListWorkers)
				r.Post("/", s.handleCreateWorker)

				r.Route("/{workerID}", func(r chi.Router) {
					r.Get("/", s.handleGetWorker)
					r.Patch("/", s.handleUpdateWorker)
					r.Delete("/", s.handleDeleteWorker)
				})
			})

			// Inventory, keyed by part
			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", s.handleListInventory)
				r.Post("/", s.handleCreateInventory)

				r.Route("/{partID}", func(r chi.Router) {
					r.Get("/", s.handleGetInventory)
					r.Patch("/", s.handleUpdateInventory)
					r.Delete("/", s.handleDeleteInventory)
				})
			})

			// Jobs
			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", s.handleListJobs)
				r.Post("/", s.handleCreateJob)

				r.Route("/{jobID}", func(r chi.Router) {
					r.Get("/", s.handleGetJob)
					r.Patch("/", s.handleUpdateJob)
					r.Delete("/", s.handleDeleteJob)
					r.Post("/parts", s.handleAddJobPart)
					r.Delete("/parts/{partID}", s.handleRemoveJobPart)
					r.Post("/workers", s.handleAssignJobWorker)
					r.Delete("/workers/{workerID}", s.handleUnassignJobWorker)
				})
			})

			// Audit trail, scoped like any other tenant data
			r.Get("/audit", s.handleListAuditLogs)

			// User administration
			r.Route("/users", func(r chi.Router) {
				r.Use(s.adminOnly)
				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleCreateUser)

				r.Route("/{userID}", func(r chi.Router) {
					r.Get("/", s.handleGetUser)
					r.Patch("/", s.handleUpdateUser)
					r.Delete("/", s.handleDeleteUser)
					r.Post("/password", s.handleResetPassword)
					r.Post("/logout-all", s.handleRevokeUserSessions)
				})
			})
		})
	})

	return r
}

// handleHealth reports the server version and the state of each
// registered component. Any failing component makes the answer 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.health))
	for name := range s.health {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	components := make(map[string]string, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.health[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			s.logger.Warn("health check failed", "component", name, "error", err)
			components[name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":     overall,
		"version":    s.version,
		"components": components,
	})
}
