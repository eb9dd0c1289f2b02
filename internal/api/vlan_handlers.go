package api

import (
	"net/http"
	"strconv"

	"github.com/martinsuchenak/netcanvas/internal/topology"
	"github.com/martinsuchenak/netcanvas/internal/vlan"
)

// listVLANs handles GET /api/vlans
func (h *Handler) listVLANs(w http.ResponseWriter, r *http.Request) {
	vlans := h.store.ListVLANs()
	if vlans == nil {
		vlans = []vlan.VLAN{}
	}
	h.writeJSON(w, http.StatusOK, vlans)
}

// saveVLAN handles POST /api/vlans. The VLAN is looked up by name and
// created if it does not exist.
func (h *Handler) saveVLAN(w http.ResponseWriter, r *http.Request) {
	var req vlan.VLAN
	if !h.decode(w, r, &req) {
		return
	}
	v, created, err := h.store.EnsureVLAN(topology.VLANSpec{ID: req.ID, Name: req.Name, Color: req.Color})
	if err != nil {
		h.storeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, v)
}

type updateVLANRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

// updateVLAN handles PUT /api/vlans/{id}
func (h *Handler) updateVLAN(w http.ResponseWriter, r *http.Request) {
	id, ok := h.vlanID(w, r)
	if !ok {
		return
	}
	var req updateVLANRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Name != nil {
		if err := h.store.SetVLANName(id, *req.Name); err != nil {
			h.storeError(w, err)
			return
		}
	}
	if req.Color != nil {
		if err := h.store.SetVLANColor(id, *req.Color); err != nil {
			h.storeError(w, err)
			return
		}
	}
	v, err := h.store.GetVLAN(id)
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, v)
}

// deleteVLAN handles DELETE /api/vlans/{id}
func (h *Handler) deleteVLAN(w http.ResponseWriter, r *http.Request) {
	id, ok := h.vlanID(w, r)
	if !ok {
		return
	}
	if err := h.store.RemoveVLAN(id); err != nil {
		h.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) vlanID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid vlan id")
		return 0, false
	}
	return id, true
}
