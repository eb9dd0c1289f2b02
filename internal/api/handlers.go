package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/layout"
	"github.com/martinsuchenak/netcanvas/internal/log"
	"github.com/martinsuchenak/netcanvas/internal/mirror"
	"github.com/martinsuchenak/netcanvas/internal/model"
	"github.com/martinsuchenak/netcanvas/internal/snmpimport"
	"github.com/martinsuchenak/netcanvas/internal/topology"
)

// ChangeLog lists recent mirrored changes
type ChangeLog interface {
	Changes(ctx context.Context, limit int) ([]mirror.Change, error)
}

// Handler handles HTTP requests
type Handler struct {
	store         *topology.Store
	layouts       *layout.Registry
	defaultEngine string
	importer      *snmpimport.Importer
	changes       ChangeLog
}

// Option configures a Handler
type Option func(*Handler)

// WithLayouts sets the engine registry and the engine used when a
// request names none.
func WithLayouts(reg *layout.Registry, defaultEngine string) Option {
	return func(h *Handler) {
		h.layouts = reg
		h.defaultEngine = defaultEngine
	}
}

// WithImporter enables POST /api/import/snmp
func WithImporter(im *snmpimport.Importer) Option {
	return func(h *Handler) { h.importer = im }
}

// WithChangeLog enables GET /api/changes
func WithChangeLog(cl ChangeLog) Option {
	return func(h *Handler) { h.changes = cl }
}

// NewHandler creates a new API handler
func NewHandler(store *topology.Store, opts ...Option) *Handler {
	h := &Handler{
		store:         store,
		layouts:       layout.NewRegistry(),
		defaultEngine: "grid",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Whole topology
	mux.HandleFunc("GET /api/snapshot", h.getSnapshot)
	mux.HandleFunc("GET /api/stats", h.getStats)
	mux.HandleFunc("POST /api/synthesize", h.synthesizeAll)
	mux.HandleFunc("GET /api/changes", h.listChanges)

	// Components and interfaces
	mux.HandleFunc("GET /api/components", h.listComponents)
	mux.HandleFunc("POST /api/components", h.createComponent)
	mux.HandleFunc("GET /api/components/{name}", h.getComponent)
	mux.HandleFunc("PUT /api/components/{name}", h.updateComponent)
	mux.HandleFunc("DELETE /api/components/{name}", h.deleteComponent)
	mux.HandleFunc("POST /api/components/{name}/interfaces", h.addInterface)
	mux.HandleFunc("POST /api/components/{name}/synthesize", h.synthesizeSwitch)
	mux.HandleFunc("GET /api/interfaces/{name}", h.getInterface)
	mux.HandleFunc("PUT /api/interfaces/{name}", h.updateInterface)
	mux.HandleFunc("DELETE /api/interfaces/{name}", h.deleteInterface)
	mux.HandleFunc("POST /api/interfaces/{name}/addresses", h.addAddress)
	mux.HandleFunc("DELETE /api/interfaces/{name}/addresses/{address}", h.releaseAddress)

	// Cables
	mux.HandleFunc("GET /api/cables", h.listCables)
	mux.HandleFunc("POST /api/cables", h.createCable)
	mux.HandleFunc("GET /api/cables/{name}", h.getCable)
	mux.HandleFunc("PUT /api/cables/{name}/path", h.setCablePath)
	mux.HandleFunc("DELETE /api/cables/{name}", h.deleteCable)

	// Groups
	mux.HandleFunc("GET /api/groups", h.listGroups)
	mux.HandleFunc("GET /api/groups/{name}", h.getGroup)
	mux.HandleFunc("PUT /api/groups/{name}", h.updateGroup)
	mux.HandleFunc("POST /api/groups/{name}/interfaces", h.createGroupInterface)
	mux.HandleFunc("DELETE /api/group-interfaces/{id}", h.deleteGroupInterface)
	mux.HandleFunc("PUT /api/group-switches/{id}", h.updateGroupSwitch)

	// VLANs
	mux.HandleFunc("GET /api/vlans", h.listVLANs)
	mux.HandleFunc("POST /api/vlans", h.saveVLAN)
	mux.HandleFunc("PUT /api/vlans/{id}", h.updateVLAN)
	mux.HandleFunc("DELETE /api/vlans/{id}", h.deleteVLAN)

	// Networks
	mux.HandleFunc("GET /api/networks", h.listNetworks)
	mux.HandleFunc("POST /api/networks", h.createNetwork)
	mux.HandleFunc("GET /api/networks/next-ip", h.getNextIP)
	mux.HandleFunc("GET /api/networks/summary", h.getSummary)
	mux.HandleFunc("GET /api/networks/{cidr...}", h.getNetwork)
	mux.HandleFunc("DELETE /api/networks/{cidr...}", h.deleteNetwork)

	// Layout and import
	mux.HandleFunc("GET /api/layout/engines", h.listEngines)
	mux.HandleFunc("POST /api/layout/{group}", h.runLayout)
	mux.HandleFunc("POST /api/import/snmp", h.importSNMP)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// internalError logs the error and writes a generic 500 response
func (h *Handler) internalError(w http.ResponseWriter, err error) {
	log.Error("Internal Server Error", "error", err)
	h.writeError(w, http.StatusInternalServerError, "Internal Server Error")
}

// storeError maps a store error onto a status code
func (h *Handler) storeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.internalError(w, err)
		return
	}
	h.writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errs.Is(err, errs.InvalidArgument):
		return http.StatusBadRequest
	case errs.Is(err, errs.NotFound):
		return http.StatusNotFound
	case errs.Is(err, errs.DuplicateIdentity),
		errs.Is(err, errs.InvariantViolation),
		errs.Is(err, errs.Exhausted):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// decode reads a JSON body into v, writing a 400 on failure
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// resynthesize rebuilds the boundary projections of every switch
// touching component: the component itself and the far end of each of
// its cables.
func (h *Handler) resynthesize(components ...string) {
	seen := make(map[string]bool)
	for _, name := range components {
		view, err := h.store.ComponentView(name)
		if err != nil {
			continue
		}
		targets := []model.Component{view.Component}
		for _, iface := range view.Interfaces {
			if !iface.Connected() {
				continue
			}
			cable, err := h.store.GetCable(iface.Cable)
			if err != nil {
				continue
			}
			peer, err := h.store.GetInterface(cable.Other(iface.Name))
			if err != nil {
				continue
			}
			if c, err := h.store.GetComponent(peer.Component); err == nil {
				targets = append(targets, c)
			}
		}
		for _, c := range targets {
			if c.Kind != model.KindSwitch || seen[c.Name] {
				continue
			}
			seen[c.Name] = true
			if err := h.store.SynthesizeBoundaries(c.Name); err != nil {
				log.Warn("Boundary synthesis failed", "switch", c.Name, "error", err)
			}
		}
	}
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errs.Invalidf("%s %q", name, v)
	}
	return n, nil
}
