package api

import (
	"net/http"

	"github.com/martinsuchenak/netcanvas/internal/geometry"
	"github.com/martinsuchenak/netcanvas/internal/topology"
)

// listGroups handles GET /api/groups
func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.store.ListGroups())
}

// getGroup handles GET /api/groups/{name}
func (h *Handler) getGroup(w http.ResponseWriter, r *http.Request) {
	view, err := h.store.GroupView(r.PathValue("name"))
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

type updateGroupRequest struct {
	Name      *string             `json:"name"`
	Dimension *geometry.Dimension `json:"dimension"`
	Position  *geometry.Point     `json:"position"`
	Fixed     bool                `json:"fixed"`
}

// updateGroup handles PUT /api/groups/{name}
func (h *Handler) updateGroup(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req updateGroupRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.Dimension != nil {
		if err := h.store.SetGroupDimension(name, req.Dimension.Width, req.Dimension.Height); err != nil {
			h.storeError(w, err)
			return
		}
	}
	if req.Position != nil {
		if err := h.store.SetGroupPosition(name, req.Position.X, req.Position.Y, req.Fixed); err != nil {
			h.storeError(w, err)
			return
		}
	}
	if req.Name != nil && *req.Name != name {
		if err := h.store.RenameGroup(name, *req.Name); err != nil {
			h.storeError(w, err)
			return
		}
		name = *req.Name
	}

	g, err := h.store.GetGroup(name)
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, g)
}

type createGroupInterfaceRequest struct {
	Inner       string        `json:"inner"`
	Outer       string        `json:"outer"`
	Orientation geometry.Side `json:"orientation"`
}

// createGroupInterface handles POST /api/groups/{name}/interfaces
func (h *Handler) createGroupInterface(w http.ResponseWriter, r *http.Request) {
	var req createGroupInterfaceRequest
	if !h.decode(w, r, &req) {
		return
	}
	gi, err := h.store.CreateGroupInterface(topology.GroupInterfaceSpec{
		Group:       r.PathValue("name"),
		Inner:       req.Inner,
		Outer:       req.Outer,
		Orientation: req.Orientation,
	})
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, gi)
}

// deleteGroupInterface handles DELETE /api/group-interfaces/{id}
func (h *Handler) deleteGroupInterface(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RemoveGroupInterface(r.PathValue("id")); err != nil {
		h.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateGroupSwitchRequest struct {
	Position geometry.Point `json:"position"`
	Fixed    bool           `json:"fixed"`
}

// updateGroupSwitch handles PUT /api/group-switches/{id}
func (h *Handler) updateGroupSwitch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req updateGroupSwitchRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.store.SetGroupSwitchPosition(id, req.Position.X, req.Position.Y, req.Fixed); err != nil {
		h.storeError(w, err)
		return
	}
	gs, err := h.store.GetGroupSwitch(id)
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, gs)
}

// listEngines handles GET /api/layout/engines
func (h *Handler) listEngines(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"engines": h.layouts.Names(),
		"default": h.defaultEngine,
	})
}

// runLayout handles POST /api/layout/{group}?engine=
func (h *Handler) runLayout(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("engine")
	if name == "" {
		name = h.defaultEngine
	}
	engine, err := h.layouts.Get(name)
	if err != nil {
		h.storeError(w, err)
		return
	}
	group := r.PathValue("group")
	moved, err := h.store.Layout(r.Context(), group, engine)
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"group":  group,
		"engine": name,
		"moved":  moved,
	})
}

