package api

import (
	"net/http"

	"github.com/nerrad567/taller-core/internal/audit"
	"github.com/nerrad567/taller-core/internal/events"
	"github.com/nerrad567/taller-core/internal/worker"
)

const entityWorker = "worker"

type createWorkerRequest struct {
	worker.Worker
	WorkshopID workshopField `json:"workshop_id"`
}

type updateWorkerRequest struct {
	worker.Patch
	WorkshopID workshopField `json:"workshop_id"`
}

func (s *Server) handleListWorkers(w http.ResponseWriter, r *http.Request) {
	scope, err := readScope(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	page, err := pageFrom(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	list, err := s.workers.List(r.Context(), scope, page)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(list, page))
}

func (s *Server) handleCreateWorker(w http.ResponseWriter, r *http.Request) {
	var req createWorkerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	workshopID, err := s.targetWorkshop(r, req.WorkshopID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	wk := req.Worker
	wk.ID = 0
	wk.WorkshopID = workshopID
	if err := worker.Validate(&wk); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.workers.Create(r.Context(), &wk); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionCreate, entityWorker, wk.ID, wk.WorkshopID, nil)
	s.publish(r, events.New(events.WorkerCreated, wk.WorkshopID, wk))
	writeJSON(w, http.StatusCreated, wk)
}

func (s *Server) handleGetWorker(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "workerID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	wk, err := s.workers.Get(r.Context(), writeScope(r), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wk)
}

func (s *Server) handleUpdateWorker(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "workerID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var req updateWorkerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := rejectWorkshopChange(r, req.WorkshopID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := worker.ValidatePatch(&req.Patch); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	wk, err := s.workers.Update(r.Context(), writeScope(r), id, req.Patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionUpdate, entityWorker, wk.ID, wk.WorkshopID, nil)
	s.publish(r, events.New(events.WorkerUpdated, wk.WorkshopID, wk))
	writeJSON(w, http.StatusOK, wk)
}

func (s *Server) handleDeleteWorker(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "workerID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	scope := writeScope(r)
	wk, err := s.workers.Get(r.Context(), scope, id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.workers.Delete(r.Context(), scope, id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionDelete, entityWorker, id, wk.WorkshopID, nil)
	s.publish(r, events.New(events.WorkerDeleted, wk.WorkshopID, map[string]int64{"worker_id": id}))
	w.WriteHeader(http.StatusNoContent)
}
