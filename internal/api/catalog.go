package api

import (
	"net/http"

	"github.com/nerrad567/taller-core/internal/audit"
	"github.com/nerrad567/taller-core/internal/catalog"
)

// The car and part catalog is shared by every workshop. Any signed-in
// user can read it and add to it; edits and deletes are admin only.

const (
	entityCar  = "car"
	entityPart = "part"
)

type partCarRequest struct {
	CarID int64 `json:"car_id"`
}

// handleListCars accepts ?brand, ?model and ?year filters.
func (s *Server) handleListCars(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	year, err := queryInt(r, "year")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := catalog.CarFilter{Brand: q.Get("brand"), Model: q.Get("model"), Year: year}

	list, err := s.catalog.ListCars(r.Context(), filter, page)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(list, page))
}

func (s *Server) handleCreateCar(w http.ResponseWriter, r *http.Request) {
	var car catalog.Car
	if err := decodeJSON(r, &car); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	car.ID = 0
	if err := catalog.ValidateCar(&car); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.catalog.CreateCar(r.Context(), &car); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionCreate, entityCar, car.ID, 0, nil)
	writeJSON(w, http.StatusCreated, car)
}

func (s *Server) handleGetCar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "carID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	car, err := s.catalog.GetCar(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, car)
}

func (s *Server) handleUpdateCar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "carID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var patch catalog.CarPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := catalog.ValidateCarPatch(&patch); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	car, err := s.catalog.UpdateCar(r.Context(), id, patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionUpdate, entityCar, id, 0, nil)
	writeJSON(w, http.StatusOK, car)
}

func (s *Server) handleDeleteCar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "carID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.catalog.DeleteCar(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionDelete, entityCar, id, 0, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleListParts accepts ?category, ?search and ?car_id filters.
func (s *Server) handleListParts(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	carID, _, err := queryInt64(r, "car_id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := catalog.PartFilter{Category: q.Get("category"), Search: q.Get("search"), CarID: carID}

	list, err := s.catalog.ListParts(r.Context(), filter, page)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(list, page))
}

func (s *Server) handleCreatePart(w http.ResponseWriter, r *http.Request) {
	var part catalog.Part
	if err := decodeJSON(r, &part); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	part.ID = 0
	if err := catalog.ValidatePart(&part); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.catalog.CreatePart(r.Context(), &part); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionCreate, entityPart, part.ID, 0, nil)
	writeJSON(w, http.StatusCreated, part)
}

func (s *Server) handleGetPart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "partID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	part, err := s.catalog.GetPart(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, part)
}

func (s *Server) handleUpdatePart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "partID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var patch catalog.PartPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := catalog.ValidatePartPatch(&patch); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	part, err := s.catalog.UpdatePart(r.Context(), id, patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionUpdate, entityPart, id, 0, nil)
	writeJSON(w, http.StatusOK, part)
}

func (s *Server) handleDeletePart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "partID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.catalog.DeletePart(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionDelete, entityPart, id, 0, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleListPartCars lists the car models a part fits.
func (s *Server) handleListPartCars(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "partID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	cars, err := s.catalog.ListPartCars(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if cars == nil {
		cars = []catalog.Car{}
	}
	writeJSON(w, http.StatusOK, cars)
}

func (s *Server) handleLinkPartCar(w http.ResponseWriter, r *http.Request) {
	partID, err := pathID(r, "partID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var req partCarRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if req.CarID <= 0 {
		s.writeDomainError(w, r, errInvalidBody)
		return
	}

	if err := s.catalog.LinkPartCar(r.Context(), partID, req.CarID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionUpdate, entityPart, partID, 0, map[string]any{"linked_car_id": req.CarID})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnlinkPartCar(w http.ResponseWriter, r *http.Request) {
	partID, err := pathID(r, "partID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	carID, err := pathID(r, "carID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if err := s.catalog.UnlinkPartCar(r.Context(), partID, carID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionUpdate, entityPart, partID, 0, map[string]any{"unlinked_car_id": carID})
	w.WriteHeader(http.StatusNoContent)
}
