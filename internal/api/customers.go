package api

import (
	"net/http"

	"github.com/nerrad567/taller-core/internal/audit"
	"github.com/nerrad567/taller-core/internal/customer"
	"github.com/nerrad567/taller-core/internal/events"
)

const (
	entityCustomer = "customer"
	entityVehicle  = "vehicle"
)

// Request bodies carry workshop_id at the top level so it shadows the
// field of the embedded record and can be told apart from absent.

type createCustomerRequest struct {
	customer.Customer
	WorkshopID workshopField `json:"workshop_id"`
}

type updateCustomerRequest struct {
	customer.Patch
	WorkshopID workshopField `json:"workshop_id"`
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
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

	list, err := s.customers.List(r.Context(), scope, page)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(list, page))
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	workshopID, err := s.targetWorkshop(r, req.WorkshopID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	c := req.Customer
	c.ID = 0
	c.WorkshopID = workshopID
	if err := customer.Validate(&c); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.customers.Create(r.Context(), &c); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionCreate, entityCustomer, c.ID, c.WorkshopID, nil)
	s.publish(r, events.New(events.CustomerCreated, c.WorkshopID, c))
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "customerID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	c, err := s.customers.Get(r.Context(), writeScope(r), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "customerID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var req updateCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := rejectWorkshopChange(r, req.WorkshopID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := customer.ValidatePatch(&req.Patch); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	c, err := s.customers.Update(r.Context(), writeScope(r), id, req.Patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionUpdate, entityCustomer, c.ID, c.WorkshopID, nil)
	s.publish(r, events.New(events.CustomerUpdated, c.WorkshopID, c))
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "customerID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	scope := writeScope(r)
	c, err := s.customers.Get(r.Context(), scope, id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.customers.Delete(r.Context(), scope, id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionDelete, entityCustomer, id, c.WorkshopID, nil)
	s.publish(r, events.New(events.CustomerDeleted, c.WorkshopID, map[string]int64{"customer_id": id}))
	w.WriteHeader(http.StatusNoContent)
}

// Vehicles belong to a customer and inherit its workshop.

func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r, "customerID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	list, err := s.customers.ListVehicles(r.Context(), writeScope(r), customerID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if list == nil {
		list = []customer.Vehicle{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleAddVehicle(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r, "customerID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var v customer.Vehicle
	if err := decodeJSON(r, &v); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := customer.ValidateVehicle(&v); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if err := s.customers.AddVehicle(r.Context(), writeScope(r), customerID, &v); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionCreate, entityVehicle, v.ID, v.WorkshopID, map[string]any{"customer_id": customerID})
	s.publish(r, events.New(events.VehicleCreated, v.WorkshopID, v))
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "vehicleID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	v, err := s.customers.GetVehicle(r.Context(), writeScope(r), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleUpdateVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "vehicleID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var patch customer.VehiclePatch
	if err := decodeJSON(r, &patch); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := customer.ValidateVehiclePatch(&patch); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	v, err := s.customers.UpdateVehicle(r.Context(), writeScope(r), id, patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionUpdate, entityVehicle, v.ID, v.WorkshopID, nil)
	s.publish(r, events.New(events.VehicleUpdated, v.WorkshopID, v))
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDeleteVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "vehicleID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	scope := writeScope(r)
	v, err := s.customers.GetVehicle(r.Context(), scope, id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.customers.DeleteVehicle(r.Context(), scope, id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionDelete, entityVehicle, id, v.WorkshopID, nil)
	s.publish(r, events.New(events.VehicleDeleted, v.WorkshopID, map[string]int64{"vehicle_id": id}))
	w.WriteHeader(http.StatusNoContent)
}
