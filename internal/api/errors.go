package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/taller-core/internal/auth"
	"github.com/nerrad567/taller-core/internal/catalog"
	"github.com/nerrad567/taller-core/internal/customer"
	"github.com/nerrad567/taller-core/internal/inventory"
	"github.com/nerrad567/taller-core/internal/job"
	"github.com/nerrad567/taller-core/internal/tenant"
	"github.com/nerrad567/taller-core/internal/worker"
	"github.com/nerrad567/taller-core/internal/workshop"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeUnavailable  = "unavailable"
)

// Request-level errors raised by the handlers themselves.
var (
	errInvalidBody       = errors.New("invalid request body")
	errInvalidID         = errors.New("invalid id")
	errInvalidQuery      = errors.New("invalid query parameter")
	errWorkshopImmutable = errors.New("workshop_id cannot be changed here")
	errRoleImmutable     = errors.New("role and workshop_id can only be changed by an admin")
)

// errorRule maps a sentinel to a response status and code.
type errorRule struct {
	err    error
	status int
	code   string
}

// errorRules is checked in order with errors.Is; the first match wins.
var errorRules = []errorRule{
	// 401
	{auth.ErrUnauthorized, http.StatusUnauthorized, ErrCodeUnauthorized},
	{auth.ErrMissingToken, http.StatusUnauthorized, ErrCodeUnauthorized},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeUnauthorized},

	// 403
	{auth.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
	{errRoleImmutable, http.StatusForbidden, ErrCodeForbidden},

	// 404: missing rows and rows owned by another workshop look the same
	{auth.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound},
	{workshop.ErrWorkshopNotFound, http.StatusNotFound, ErrCodeNotFound},
	{workshop.ErrOwnerNotFound, http.StatusNotFound, ErrCodeNotFound},
	{customer.ErrCustomerNotFound, http.StatusNotFound, ErrCodeNotFound},
	{customer.ErrVehicleNotFound, http.StatusNotFound, ErrCodeNotFound},
	{catalog.ErrCarNotFound, http.StatusNotFound, ErrCodeNotFound},
	{catalog.ErrPartNotFound, http.StatusNotFound, ErrCodeNotFound},
	{worker.ErrWorkerNotFound, http.StatusNotFound, ErrCodeNotFound},
	{inventory.ErrItemNotFound, http.StatusNotFound, ErrCodeNotFound},
	{job.ErrJobNotFound, http.StatusNotFound, ErrCodeNotFound},
	{job.ErrVehicleNotFound, http.StatusNotFound, ErrCodeNotFound},
	{job.ErrWorkerNotFound, http.StatusNotFound, ErrCodeNotFound},
	{job.ErrPartNotOnJob, http.StatusNotFound, ErrCodeNotFound},
	{job.ErrWorkerNotOnJob, http.StatusNotFound, ErrCodeNotFound},

	// 400: validation
	{errInvalidBody, http.StatusBadRequest, ErrCodeValidation},
	{errInvalidID, http.StatusBadRequest, ErrCodeValidation},
	{errInvalidQuery, http.StatusBadRequest, ErrCodeValidation},
	{auth.ErrWeakPassword, http.StatusBadRequest, ErrCodeValidation},
	{auth.ErrInvalidUser, http.StatusBadRequest, ErrCodeValidation},
	{auth.ErrInvalidRole, http.StatusBadRequest, ErrCodeValidation},
	{workshop.ErrInvalidWorkshop, http.StatusBadRequest, ErrCodeValidation},
	{customer.ErrInvalidCustomer, http.StatusBadRequest, ErrCodeValidation},
	{catalog.ErrInvalidCatalog, http.StatusBadRequest, ErrCodeValidation},
	{worker.ErrInvalidWorker, http.StatusBadRequest, ErrCodeValidation},
	{inventory.ErrInvalidItem, http.StatusBadRequest, ErrCodeValidation},
	{job.ErrInvalidJob, http.StatusBadRequest, ErrCodeValidation},

	// 400: state
	{auth.ErrEmailExists, http.StatusBadRequest, ErrCodeBadRequest},
	{auth.ErrWrongPassword, http.StatusBadRequest, ErrCodeBadRequest},
	{auth.ErrPasswordChanged, http.StatusBadRequest, ErrCodeBadRequest},
	{auth.ErrLastAdmin, http.StatusBadRequest, ErrCodeBadRequest},
	{auth.ErrNoWorkshop, http.StatusBadRequest, ErrCodeBadRequest},
	{auth.ErrWorkshopRequired, http.StatusBadRequest, ErrCodeBadRequest},
	{errWorkshopImmutable, http.StatusBadRequest, ErrCodeBadRequest},
	{tenant.ErrUnknownWorkshop, http.StatusBadRequest, ErrCodeBadRequest},
	{workshop.ErrAlreadyAssigned, http.StatusBadRequest, ErrCodeBadRequest},
	{workshop.ErrReservedWorkshop, http.StatusBadRequest, ErrCodeBadRequest},
	{workshop.ErrWorkshopInUse, http.StatusBadRequest, ErrCodeBadRequest},
	{customer.ErrUnknownCar, http.StatusBadRequest, ErrCodeBadRequest},
	{customer.ErrCustomerInUse, http.StatusBadRequest, ErrCodeBadRequest},
	{customer.ErrVehicleInUse, http.StatusBadRequest, ErrCodeBadRequest},
	{catalog.ErrCarExists, http.StatusBadRequest, ErrCodeBadRequest},
	{catalog.ErrCarInUse, http.StatusBadRequest, ErrCodeBadRequest},
	{catalog.ErrPartInUse, http.StatusBadRequest, ErrCodeBadRequest},
	{inventory.ErrAlreadyStocked, http.StatusBadRequest, ErrCodeBadRequest},
	{inventory.ErrUnknownPart, http.StatusBadRequest, ErrCodeBadRequest},
	{inventory.ErrInsufficientStock, http.StatusBadRequest, ErrCodeBadRequest},
	{job.ErrPartNotStocked, http.StatusBadRequest, ErrCodeBadRequest},
}

// unauthorizedMessage is the only text a 401 ever carries.
const unauthorizedMessage = "could not validate credentials"

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeUnauthorized writes a 401 with a bearer challenge.
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// classify returns the response status and code for err. Unknown errors
// are internal.
func classify(err error) (int, string) {
	for _, rule := range errorRules {
		if errors.Is(err, rule.err) {
			return rule.status, rule.code
		}
	}
	return http.StatusInternalServerError, ErrCodeInternal
}

// writeDomainError maps err onto the HTTP error taxonomy. Internal errors
// are logged with the request id and answered with a fixed message.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		// Client went away; nobody reads the response.
		return
	}

	status, code := classify(err)
	switch status {
	case http.StatusInternalServerError:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestIDFrom(r.Context()),
			"error", err,
		)
		writeInternalError(w, "internal server error")
	case http.StatusUnauthorized:
		if errors.Is(err, auth.ErrInvalidCredentials) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, status, code, auth.ErrInvalidCredentials.Error())
			return
		}
		writeUnauthorized(w, unauthorizedMessage)
	default:
		writeError(w, status, code, err.Error())
	}
}
