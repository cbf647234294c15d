package api

import (
	"net/http"

	"github.com/nerrad567/taller-core/internal/audit"
	"github.com/nerrad567/taller-core/internal/auth"
	"github.com/nerrad567/taller-core/internal/events"
	"github.com/nerrad567/taller-core/internal/inventory"
)

const entityInventory = "inventory"

type createItemRequest struct {
	inventory.Item
	WorkshopID workshopField `json:"workshop_id"`
}

type updateItemRequest struct {
	inventory.Patch
	WorkshopID workshopField `json:"workshop_id"`
}

// handleListInventory lists stock rows. ?low_stock=N keeps only rows with
// fewer than N units.
func (s *Server) handleListInventory(w http.ResponseWriter, r *http.Request) {
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
	lowStock, err := queryInt(r, "low_stock")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	list, err := s.inventory.List(r.Context(), scope, inventory.Filter{LowStock: lowStock}, page)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(list, page))
}

func (s *Server) handleCreateInventory(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	workshopID, err := s.targetWorkshop(r, req.WorkshopID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	it := req.Item
	it.WorkshopID = workshopID
	if err := inventory.Validate(&it); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.inventory.Create(r.Context(), &it); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionCreate, entityInventory, it.PartID, it.WorkshopID, map[string]any{"quantity": it.Quantity})
	s.publish(r, events.New(events.InventoryCreated, it.WorkshopID, it))
	writeJSON(w, http.StatusCreated, it)
}

// itemKey resolves the workshop and part of /inventory/{partID}. Admins
// name the workshop with ?workshop_id.
func itemKey(r *http.Request) (workshopID, partID int64, err error) {
	partID, err = pathID(r, "partID")
	if err != nil {
		return 0, 0, err
	}
	requested, err := requestedWorkshop(r)
	if err != nil {
		return 0, 0, err
	}
	workshopID, err = auth.ResolveWorkshop(identityFrom(r), requested)
	if err != nil {
		return 0, 0, err
	}
	return workshopID, partID, nil
}

func (s *Server) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	workshopID, partID, err := itemKey(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	it, err := s.inventory.Get(r.Context(), workshopID, partID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleUpdateInventory(w http.ResponseWriter, r *http.Request) {
	workshopID, partID, err := itemKey(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := rejectWorkshopChange(r, req.WorkshopID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := inventory.ValidatePatch(&req.Patch); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	it, err := s.inventory.Update(r.Context(), workshopID, partID, req.Patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionUpdate, entityInventory, partID, workshopID, nil)
	s.publish(r, events.New(events.InventoryUpdated, workshopID, it))
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleDeleteInventory(w http.ResponseWriter, r *http.Request) {
	workshopID, partID, err := itemKey(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.inventory.Delete(r.Context(), workshopID, partID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionDelete, entityInventory, partID, workshopID, nil)
	s.publish(r, events.New(events.InventoryDeleted, workshopID, map[string]int64{"part_id": partID}))
	w.WriteHeader(http.StatusNoContent)
}
