package api

import (
	"net/http"

	"github.com/martinsuchenak/netcanvas/internal/geometry"
	"github.com/martinsuchenak/netcanvas/internal/log"
	"github.com/martinsuchenak/netcanvas/internal/model"
	"github.com/martinsuchenak/netcanvas/internal/topology"
)

type createCableRequest struct {
	Left           string `json:"left"`
	Right          string `json:"right"`
	GroupInterface string `json:"group_interface"`
}

// listCables handles GET /api/cables
func (h *Handler) listCables(w http.ResponseWriter, r *http.Request) {
	cables := h.store.ListCables()
	if cables == nil {
		cables = []model.Cable{}
	}
	h.writeJSON(w, http.StatusOK, cables)
}

// getCable handles GET /api/cables/{name}
func (h *Handler) getCable(w http.ResponseWriter, r *http.Request) {
	cable, err := h.store.GetCable(r.PathValue("name"))
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cable)
}

// createCable handles POST /api/cables
func (h *Handler) createCable(w http.ResponseWriter, r *http.Request) {
	var req createCableRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Left == "" || req.Right == "" {
		h.writeError(w, http.StatusBadRequest, "left and right are required")
		return
	}

	cable, err := h.store.Connect(topology.CableSpec{Left: req.Left, Right: req.Right, GroupInterface: req.GroupInterface})
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.resynthesize(h.endpointComponents(cable)...)
	log.Info("Cable connected", "cable", cable.Name, "left", cable.Left, "right", cable.Right)

	if cable, err = h.store.GetCable(cable.Name); err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, cable)
}

// setCablePath handles PUT /api/cables/{name}/path
func (h *Handler) setCablePath(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var path []geometry.Point
	if !h.decode(w, r, &path) {
		return
	}
	if err := h.store.SetCablePath(name, path); err != nil {
		h.storeError(w, err)
		return
	}
	cable, err := h.store.GetCable(name)
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cable)
}

// deleteCable handles DELETE /api/cables/{name}
func (h *Handler) deleteCable(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	cable, err := h.store.GetCable(name)
	if err != nil {
		h.storeError(w, err)
		return
	}
	components := h.endpointComponents(cable)
	if err := h.store.RemoveCable(name); err != nil {
		h.storeError(w, err)
		return
	}
	h.resynthesize(components...)
	log.Info("Cable disconnected", "cable", name)
	w.WriteHeader(http.StatusNoContent)
}

// endpointComponents returns the components at both ends of cable
func (h *Handler) endpointComponents(cable model.Cable) []string {
	var out []string
	for _, end := range []string{cable.Left, cable.Right} {
		if iface, err := h.store.GetInterface(end); err == nil {
			out = append(out, iface.Component)
		}
	}
	return out
}
