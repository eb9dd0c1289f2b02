package api

import (
	"encoding/hex"
	"net/http"

	"golang.org/x/crypto/blake2b"

	"github.com/martinsuchenak/netcanvas/internal/codec"
)

// SnapshotETag returns the entity tag for an encoded snapshot
func SnapshotETag(body []byte) string {
	sum := blake2b.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// getSnapshot handles GET /api/snapshot
func (h *Handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	format, err := codec.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.storeError(w, err)
		return
	}

	snap := h.store.Snapshot()
	if group := r.URL.Query().Get("group"); group != "" {
		if snap, err = h.store.GroupSnapshot(group); err != nil {
			h.storeError(w, err)
			return
		}
	}

	body, err := codec.Marshal(format, snap)
	if err != nil {
		h.internalError(w, err)
		return
	}

	etag := SnapshotETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// getStats handles GET /api/stats
func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.store.Stats())
}

// synthesizeAll handles POST /api/synthesize
func (h *Handler) synthesizeAll(w http.ResponseWriter, r *http.Request) {
	if err := h.store.SynthesizeAll(); err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.store.Stats())
}

// listChanges handles GET /api/changes
func (h *Handler) listChanges(w http.ResponseWriter, r *http.Request) {
	if h.changes == nil {
		h.writeError(w, http.StatusNotFound, "change log not enabled")
		return
	}
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		h.storeError(w, err)
		return
	}
	changes, err := h.changes.Changes(r.Context(), limit)
	if err != nil {
		h.internalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, changes)
}
