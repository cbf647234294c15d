package api

import (
	"net/http"

	"github.com/nerrad567/taller-core/internal/audit"
	"github.com/nerrad567/taller-core/internal/events"
	"github.com/nerrad567/taller-core/internal/job"
)

const entityJob = "job"

type createJobRequest struct {
	job.Job
	WorkshopID workshopField `json:"workshop_id"`
}

type updateJobRequest struct {
	job.Patch
	WorkshopID workshopField `json:"workshop_id"`
}

type jobPartRequest struct {
	PartID   int64 `json:"part_id"`
	Quantity int   `json:"quantity"`
}

type jobWorkerRequest struct {
	WorkerID int64  `json:"worker_id"`
	JobRole  string `json:"job_role"`
}

// handleListJobs lists jobs, optionally filtered by ?status and
// ?customer_car_id.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
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
	filter := job.Filter{Status: job.Status(r.URL.Query().Get("status"))}
	if filter.Status != "" && !filter.Status.IsValid() {
		s.writeDomainError(w, r, errInvalidQuery)
		return
	}
	if filter.CustomerCarID, _, err = queryInt64(r, "customer_car_id"); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	list, err := s.jobs.List(r.Context(), scope, filter, page)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(list, page))
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	workshopID, err := s.targetWorkshop(r, req.WorkshopID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	j := req.Job
	j.ID = 0
	j.WorkshopID = workshopID
	j.Parts, j.Workers = nil, nil
	if err := job.Validate(&j); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.jobs.Create(r.Context(), &j); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionCreate, entityJob, j.ID, j.WorkshopID, map[string]any{"invoice": j.Invoice})
	s.publishJob(r, events.JobCreated, &j)
	writeJSON(w, http.StatusCreated, j)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "jobID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	j, err := s.jobs.Get(r.Context(), writeScope(r), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "jobID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var req updateJobRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := rejectWorkshopChange(r, req.WorkshopID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := job.ValidatePatch(&req.Patch); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	j, err := s.jobs.Update(r.Context(), writeScope(r), id, req.Patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	var details map[string]any
	if req.Status != nil {
		details = map[string]any{"status": j.Status}
	}
	s.auditLog(r, audit.ActionUpdate, entityJob, j.ID, j.WorkshopID, details)
	s.publishJob(r, events.JobUpdated, j)
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "jobID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	scope := writeScope(r)
	j, err := s.jobs.Get(r.Context(), scope, id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.jobs.Delete(r.Context(), scope, id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionDelete, entityJob, id, j.WorkshopID, nil)
	s.publish(r, events.New(events.JobDeleted, j.WorkshopID, map[string]int64{"job_id": id}))
	w.WriteHeader(http.StatusNoContent)
}

// handleAddJobPart consumes stock for a job and returns the updated job.
func (s *Server) handleAddJobPart(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathID(r, "jobID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var req jobPartRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if req.PartID <= 0 {
		s.writeDomainError(w, r, errInvalidBody)
		return
	}

	if err := s.jobs.AddPart(r.Context(), writeScope(r), jobID, req.PartID, req.Quantity); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.respondJobChange(w, r, jobID, events.JobPartAdded, map[string]any{"part_id": req.PartID, "quantity": req.Quantity})
}

// handleRemoveJobPart returns a part's units to stock.
func (s *Server) handleRemoveJobPart(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathID(r, "jobID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	partID, err := pathID(r, "partID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if err := s.jobs.RemovePart(r.Context(), writeScope(r), jobID, partID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.respondJobChange(w, r, jobID, events.JobPartRemoved, map[string]any{"part_id": partID})
}

// handleAssignJobWorker puts a worker on a job, or changes their role.
func (s *Server) handleAssignJobWorker(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathID(r, "jobID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var req jobWorkerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if req.WorkerID <= 0 {
		s.writeDomainError(w, r, errInvalidBody)
		return
	}

	if err := s.jobs.AssignWorker(r.Context(), writeScope(r), jobID, req.WorkerID, req.JobRole); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.respondJobChange(w, r, jobID, events.JobWorkerAssigned, map[string]any{"worker_id": req.WorkerID, "job_role": req.JobRole})
}

func (s *Server) handleUnassignJobWorker(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathID(r, "jobID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	workerID, err := pathID(r, "workerID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if err := s.jobs.UnassignWorker(r.Context(), writeScope(r), jobID, workerID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.respondJobChange(w, r, jobID, events.JobWorkerUnassigned, map[string]any{"worker_id": workerID})
}

// respondJobChange reloads a job after a part or worker change, records
// it and writes it back.
func (s *Server) respondJobChange(w http.ResponseWriter, r *http.Request, jobID int64, evType events.Type, details map[string]any) {
	j, err := s.jobs.Get(r.Context(), writeScope(r), jobID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionUpdate, entityJob, jobID, j.WorkshopID, details)
	s.publishJob(r, evType, j)
	writeJSON(w, http.StatusOK, j)
}

// publishJob emits a job event tagged with the job's status.
func (s *Server) publishJob(r *http.Request, evType events.Type, j *job.Job) {
	s.publish(r, events.New(evType, j.WorkshopID, j).WithStatus(string(j.Status)))
}
