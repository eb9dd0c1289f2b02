package api

import (
	"net/http"

	"github.com/martinsuchenak/netcanvas/internal/geometry"
	"github.com/martinsuchenak/netcanvas/internal/log"
	"github.com/martinsuchenak/netcanvas/internal/model"
	"github.com/martinsuchenak/netcanvas/internal/topology"
)

type createComponentRequest struct {
	Kind       model.Kind          `json:"kind"`
	Label      string              `json:"label"`
	Group      string              `json:"group"`
	Interfaces []geometry.Side     `json:"interfaces"`
	Dimension  *geometry.Dimension `json:"dimension"`
	Position   *geometry.Point     `json:"position"`
	Fixed      bool                `json:"fixed"`
}

type updateComponentRequest struct {
	Label     *string             `json:"label"`
	Group     *string             `json:"group"`
	Dimension *geometry.Dimension `json:"dimension"`
	Position  *geometry.Point     `json:"position"`
	Fixed     bool                `json:"fixed"`
}

// listComponents handles GET /api/components
func (h *Handler) listComponents(w http.ResponseWriter, r *http.Request) {
	components := h.store.ListComponents()
	if kind := r.URL.Query().Get("kind"); kind != "" {
		filtered := components[:0]
		for _, c := range components {
			if string(c.Kind) == kind {
				filtered = append(filtered, c)
			}
		}
		components = filtered
	}
	if components == nil {
		components = []model.Component{}
	}
	h.writeJSON(w, http.StatusOK, components)
}

// getComponent handles GET /api/components/{name}
func (h *Handler) getComponent(w http.ResponseWriter, r *http.Request) {
	view, err := h.store.ComponentView(r.PathValue("name"))
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// createComponent handles POST /api/components
func (h *Handler) createComponent(w http.ResponseWriter, r *http.Request) {
	var req createComponentRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.store.CreateComponent(topology.ComponentSpec{
		Kind:         req.Kind,
		Label:        req.Label,
		Group:        req.Group,
		Orientations: req.Interfaces,
		Dimension:    req.Dimension,
		Position:     req.Position,
		Fixed:        req.Fixed,
	})
	if err != nil {
		h.storeError(w, err)
		return
	}
	log.Info("Component created", "name", c.Name, "kind", c.Kind)

	view, err := h.store.ComponentView(c.Name)
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, view)
}

// updateComponent handles PUT /api/components/{name}
func (h *Handler) updateComponent(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req updateComponentRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.Label != nil {
		if err := h.store.SetComponentLabel(name, *req.Label); err != nil {
			h.storeError(w, err)
			return
		}
	}
	if req.Dimension != nil {
		if err := h.store.SetComponentDimension(name, req.Dimension.Width, req.Dimension.Height); err != nil {
			h.storeError(w, err)
			return
		}
	}
	if req.Position != nil {
		if err := h.store.SetComponentPosition(name, req.Position.X, req.Position.Y, req.Fixed); err != nil {
			h.storeError(w, err)
			return
		}
	}
	if req.Group != nil {
		if err := h.store.SetGroup(name, *req.Group); err != nil {
			h.storeError(w, err)
			return
		}
		h.resynthesize(name)
	}

	view, err := h.store.ComponentView(name)
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// deleteComponent handles DELETE /api/components/{name}
func (h *Handler) deleteComponent(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	peers := h.peers(name)
	if err := h.store.RemoveComponent(name); err != nil {
		h.storeError(w, err)
		return
	}
	h.resynthesize(peers...)
	log.Info("Component deleted", "name", name)
	w.WriteHeader(http.StatusNoContent)
}

// peers returns the components cabled to name
func (h *Handler) peers(name string) []string {
	view, err := h.store.ComponentView(name)
	if err != nil {
		return nil
	}
	var out []string
	for _, iface := range view.Interfaces {
		if !iface.Connected() {
			continue
		}
		cable, err := h.store.GetCable(iface.Cable)
		if err != nil {
			continue
		}
		if peer, err := h.store.GetInterface(cable.Other(iface.Name)); err == nil {
			out = append(out, peer.Component)
		}
	}
	return out
}

type addInterfaceRequest struct {
	Orientation geometry.Side `json:"orientation"`
	Label       string        `json:"label"`
}

// addInterface handles POST /api/components/{name}/interfaces
func (h *Handler) addInterface(w http.ResponseWriter, r *http.Request) {
	var req addInterfaceRequest
	if !h.decode(w, r, &req) {
		return
	}
	iface, err := h.store.AddInterface(r.PathValue("name"), topology.InterfaceSpec{Orientation: req.Orientation, Label: req.Label})
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, iface)
}

// synthesizeSwitch handles POST /api/components/{name}/synthesize
func (h *Handler) synthesizeSwitch(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.store.SynthesizeBoundaries(name); err != nil {
		h.storeError(w, err)
		return
	}
	view, err := h.store.ComponentView(name)
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// getInterface handles GET /api/interfaces/{name}
func (h *Handler) getInterface(w http.ResponseWriter, r *http.Request) {
	iface, err := h.store.GetInterface(r.PathValue("name"))
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, iface)
}

type updateInterfaceRequest struct {
	Label       *string        `json:"label"`
	Orientation *geometry.Side `json:"orientation"`
	VLANs       *[]int         `json:"vlans"`
}

// updateInterface handles PUT /api/interfaces/{name}
func (h *Handler) updateInterface(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req updateInterfaceRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.Label != nil {
		if err := h.store.SetInterfaceLabel(name, *req.Label); err != nil {
			h.storeError(w, err)
			return
		}
	}
	if req.Orientation != nil {
		if err := h.store.SetInterfaceOrientation(name, *req.Orientation); err != nil {
			h.storeError(w, err)
			return
		}
	}
	if req.VLANs != nil {
		if err := h.store.SetInterfaceVLANs(name, *req.VLANs); err != nil {
			h.storeError(w, err)
			return
		}
	}

	iface, err := h.store.GetInterface(name)
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, iface)
}

// deleteInterface handles DELETE /api/interfaces/{name}
func (h *Handler) deleteInterface(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	iface, err := h.store.GetInterface(name)
	if err != nil {
		h.storeError(w, err)
		return
	}
	peers := h.peers(iface.Component)
	if err := h.store.RemoveInterface(name); err != nil {
		h.storeError(w, err)
		return
	}
	h.resynthesize(append(peers, iface.Component)...)
	w.WriteHeader(http.StatusNoContent)
}

type addressRequest struct {
	Network string `json:"network"`
	Address string `json:"address"` // empty allocates the next free address
}

// addAddress handles POST /api/interfaces/{name}/addresses
func (h *Handler) addAddress(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Network == "" {
		h.writeError(w, http.StatusBadRequest, "network is required")
		return
	}

	name := r.PathValue("name")
	var (
		cfg model.IPConfig
		err error
	)
	if req.Address == "" {
		cfg, err = h.store.AllocateAddress(name, req.Network)
	} else {
		cfg, err = h.store.AssignAddress(name, req.Address, req.Network)
	}
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, cfg)
}

// releaseAddress handles DELETE /api/interfaces/{name}/addresses/{address}
func (h *Handler) releaseAddress(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ReleaseAddress(r.PathValue("name"), r.PathValue("address")); err != nil {
		h.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
