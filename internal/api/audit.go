package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/taller-core/internal/audit"
	"github.com/nerrad567/taller-core/internal/events"
)

// auditChanSize is the buffer size for the async audit log channel.
// Entries beyond this are dropped (best-effort) to avoid back-pressure on requests.
const auditChanSize = 256

// auditWriteTimeout bounds a single audit insert.
const auditWriteTimeout = 5 * time.Second

// auditLog enqueues an audit entry for the caller of r. workshopID is 0 for
// entries that belong to no workshop (catalog, users, logins).
func (s *Server) auditLog(r *http.Request, action, entityType string, entityID, workshopID int64, details map[string]any) {
	if s.auditCh == nil {
		return
	}

	entry := &audit.AuditLog{
		Action:     action,
		EntityType: entityType,
		Source:     "api",
		Details:    details,
	}
	if entityID != 0 {
		entry.EntityID = strconv.FormatInt(entityID, 10)
	}
	if workshopID != 0 {
		entry.WorkshopID = &workshopID
	}
	if id := identityFrom(r); id.UserID != 0 {
		entry.UserID = strconv.FormatInt(id.UserID, 10)
	}

	select {
	case s.auditCh <- entry:
	default:
		s.logger.Warn("audit log channel full, dropping entry",
			"action", action,
			"entity_type", entityType,
		)
	}
}

// drainAuditLog writes queued entries serially until ctx ends, then
// flushes what is left.
func (s *Server) drainAuditLog(ctx context.Context) {
	for {
		select {
		case entry := <-s.auditCh:
			s.writeAudit(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-s.auditCh:
					s.writeAudit(entry)
				default:
					return
				}
			}
		}
	}
}

func (s *Server) writeAudit(entry *audit.AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Error("audit log write failed",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"error", err,
		)
	}
}

// handleListAuditLogs returns audit entries visible to the caller.
//
// Query parameters:
//   - workshop_id: admins only, narrows to one workshop
//   - action, entity_type, entity_id: exact-match filters
//   - limit (default 50, max 200), offset
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "audit logging not configured")
		return
	}

	scope, err := readScope(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	q := r.URL.Query()
	result, err := s.auditRepo.List(r.Context(), scope, audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// publish hands ev to the event bus under the request context.
func (s *Server) publish(r *http.Request, ev events.Event) {
	s.events.Publish(r.Context(), ev)
}
