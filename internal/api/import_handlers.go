package api

import (
	"net/http"

	"github.com/martinsuchenak/netcanvas/internal/snmpimport"
)

// importSNMP handles POST /api/import/snmp
func (h *Handler) importSNMP(w http.ResponseWriter, r *http.Request) {
	if h.importer == nil {
		h.writeError(w, http.StatusNotFound, "snmp import not enabled")
		return
	}
	var req snmpimport.Request
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.importer.Import(r.Context(), req)
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.resynthesize(view.Component.Name)
	h.writeJSON(w, http.StatusCreated, view)
}
