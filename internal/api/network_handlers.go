package api

import (
	"net/http"

	"github.com/martinsuchenak/netcanvas/internal/model"
)

// listNetworks handles GET /api/networks
func (h *Handler) listNetworks(w http.ResponseWriter, r *http.Request) {
	networks := h.store.ListNetworks()
	if networks == nil {
		networks = []model.Network{}
	}
	h.writeJSON(w, http.StatusOK, networks)
}

type createNetworkRequest struct {
	CIDR string `json:"cidr"`
}

// createNetwork handles POST /api/networks
func (h *Handler) createNetwork(w http.ResponseWriter, r *http.Request) {
	var req createNetworkRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.CIDR == "" {
		h.writeError(w, http.StatusBadRequest, "cidr is required")
		return
	}
	n, err := h.store.RegisterNetwork(req.CIDR)
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, n)
}

// getNetwork handles GET /api/networks/{cidr...}
func (h *Handler) getNetwork(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.GetNetwork(r.PathValue("cidr"))
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, n)
}

// deleteNetwork handles DELETE /api/networks/{cidr...}
func (h *Handler) deleteNetwork(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RemoveNetwork(r.PathValue("cidr")); err != nil {
		h.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getNextIP handles GET /api/networks/next-ip?cidr=
func (h *Handler) getNextIP(w http.ResponseWriter, r *http.Request) {
	cidr := r.URL.Query().Get("cidr")
	if cidr == "" {
		h.writeError(w, http.StatusBadRequest, "cidr is required")
		return
	}
	ip, err := h.store.NextFreeAddress(cidr)
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"ip": ip, "network": cidr})
}

// getSummary handles GET /api/networks/summary
func (h *Handler) getSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.NetworkSummary()
	if err != nil {
		h.storeError(w, err)
		return
	}
	if summary == nil {
		summary = []string{}
	}
	h.writeJSON(w, http.StatusOK, summary)
}
