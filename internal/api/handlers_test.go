package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/mirror"
	"github.com/martinsuchenak/netcanvas/internal/model"
	"github.com/martinsuchenak/netcanvas/internal/snmpimport"
	"github.com/martinsuchenak/netcanvas/internal/topology"
	"github.com/martinsuchenak/netcanvas/internal/vlan"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errs.Invalidf("x"), http.StatusBadRequest},
		{errs.NotFoundf("x"), http.StatusNotFound},
		{errs.Duplicatef("x"), http.StatusConflict},
		{errs.Invariantf("x"), http.StatusConflict},
		{errs.Exhaustedf("x"), http.StatusConflict},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestHandler_ComponentLifecycle(t *testing.T) {
	server := setupTestServer(t, setupTestHandler())

	var created model.ComponentView
	resp := do(t, server, "POST", "/api/components", map[string]any{
		"kind":       "host",
		"label":      "web",
		"interfaces": []string{"TOP", "LEFT"},
	}, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}
	name := created.Component.Name
	if name != "host_1" || len(created.Interfaces) != 2 {
		t.Fatalf("Unexpected component %+v", created)
	}

	var updated model.ComponentView
	resp = do(t, server, "PUT", "/api/components/"+name, map[string]any{
		"label":    "web-01",
		"position": map[string]int{"x": 4, "y": 6},
		"fixed":    true,
		"group":    "dmz",
	}, &updated)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if updated.Component.Label != "web-01" || !updated.Component.Fixed || updated.Component.Position.X != 4 {
		t.Errorf("Update not applied: %+v", updated.Component)
	}

	var group model.GroupView
	if resp := do(t, server, "GET", "/api/groups/dmz", nil, &group); resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected group dmz, got %d", resp.StatusCode)
	}
	if _, ok := group.Components[name]; !ok {
		t.Errorf("Expected %s in dmz, got %v", name, group.Group.Members)
	}

	var iface model.Interface
	resp = do(t, server, "POST", "/api/components/"+name+"/interfaces", map[string]any{"orientation": "RIGHT", "label": "eth2"}, &iface)
	if resp.StatusCode != http.StatusCreated || iface.Name != "host_1_if2" {
		t.Fatalf("Add interface: status %d, %+v", resp.StatusCode, iface)
	}

	if resp := do(t, server, "DELETE", "/api/components/"+name, nil, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", resp.StatusCode)
	}
	if resp := do(t, server, "GET", "/api/components/"+name, nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", resp.StatusCode)
	}
	if resp := do(t, server, "GET", "/api/groups/dmz", nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected empty group to be torn down, got %d", resp.StatusCode)
	}
}

func TestHandler_CablesSynthesizeBoundaries(t *testing.T) {
	h := setupTestHandler()
	server := setupTestServer(t, h)

	var sw, host model.ComponentView
	do(t, server, "POST", "/api/components", map[string]any{"kind": "switch", "interfaces": []string{"BOTTOM"}}, &sw)
	do(t, server, "POST", "/api/components", map[string]any{"kind": "host", "interfaces": []string{"TOP"}, "group": "lab"}, &host)

	var cable model.Cable
	resp := do(t, server, "POST", "/api/cables", map[string]string{
		"left":  sw.Component.Interfaces[0],
		"right": host.Component.Interfaces[0],
	}, &cable)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}

	gs, err := h.store.ListGroupSwitches("lab")
	if err != nil || len(gs) != 1 {
		t.Fatalf("Expected one group switch in lab, got %v (%v)", gs, err)
	}

	resp = do(t, server, "POST", "/api/cables", map[string]string{
		"left":  sw.Component.Interfaces[0],
		"right": host.Component.Interfaces[0],
	}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected status 409 for reused interfaces, got %d", resp.StatusCode)
	}

	if resp := do(t, server, "DELETE", "/api/cables/"+cable.Name, nil, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", resp.StatusCode)
	}
	if st := h.store.Stats(); st.GroupSwitches != 0 || st.VirtualInterfaces != 0 {
		t.Errorf("Expected projections to be dropped after disconnect, got %+v", st)
	}
}

func TestHandler_NetworksAndAddresses(t *testing.T) {
	server := setupTestServer(t, setupTestHandler())

	var n model.Network
	if resp := do(t, server, "POST", "/api/networks", map[string]string{"cidr": "10.1.0.0/30"}, &n); resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}
	if n.CIDR != "10.1.0.0/30" {
		t.Errorf("Unexpected network %+v", n)
	}

	var host model.ComponentView
	do(t, server, "POST", "/api/components", map[string]any{"kind": "host", "interfaces": []string{"TOP"}}, &host)
	ifName := host.Component.Interfaces[0]

	var next map[string]string
	do(t, server, "GET", "/api/networks/next-ip?cidr=10.1.0.0/30", nil, &next)
	if next["ip"] != "10.1.0.1" {
		t.Errorf("Expected next ip 10.1.0.1, got %v", next)
	}

	var cfg model.IPConfig
	if resp := do(t, server, "POST", "/api/interfaces/"+ifName+"/addresses", map[string]string{"network": "10.1.0.0/30"}, &cfg); resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}
	if cfg.Address != next["ip"] {
		t.Errorf("Expected the allocation to hand out %s, got %s", next["ip"], cfg.Address)
	}
	do(t, server, "POST", "/api/interfaces/"+ifName+"/addresses", map[string]string{"network": "10.1.0.0/30", "address": "10.1.0.2"}, nil)

	if resp := do(t, server, "GET", "/api/networks/next-ip?cidr=10.1.0.0/30", nil, nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected status 409 for exhausted network, got %d", resp.StatusCode)
	}
	if resp := do(t, server, "DELETE", "/api/networks/10.1.0.0/30", nil, nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected status 409 deleting a network in use, got %d", resp.StatusCode)
	}

	var got model.Network
	if resp := do(t, server, "GET", "/api/networks/10.1.0.0/30", nil, &got); resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if len(got.Allocated) != 2 {
		t.Errorf("Expected 2 allocated addresses, got %v", got.Allocated)
	}

	if resp := do(t, server, "DELETE", "/api/interfaces/"+ifName+"/addresses/10.1.0.1", nil, nil); resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", resp.StatusCode)
	}
}

func TestHandler_VLANs(t *testing.T) {
	server := setupTestServer(t, setupTestHandler())

	var v vlan.VLAN
	if resp := do(t, server, "POST", "/api/vlans", map[string]any{"name": "voice", "color": "#AABBCC"}, &v); resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}
	if v.Color != "#aabbcc" {
		t.Errorf("Expected normalised colour, got %q", v.Color)
	}
	if resp := do(t, server, "POST", "/api/vlans", map[string]any{"name": "voice"}, nil); resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 for existing vlan, got %d", resp.StatusCode)
	}

	var host model.ComponentView
	do(t, server, "POST", "/api/components", map[string]any{"kind": "vm", "interfaces": []string{"TOP"}}, &host)
	ifName := host.Component.Interfaces[0]
	if resp := do(t, server, "PUT", "/api/interfaces/"+ifName, map[string]any{"vlans": []int{v.ID}}, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	path := "/api/vlans/" + strconv.Itoa(v.ID)
	if resp := do(t, server, "DELETE", path, nil, nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected status 409 deleting a vlan in use, got %d", resp.StatusCode)
	}
	if resp := do(t, server, "PUT", path, map[string]any{"name": "voip"}, &v); resp.StatusCode != http.StatusOK || v.Name != "voip" {
		t.Errorf("Rename failed: %d %+v", resp.StatusCode, v)
	}
	do(t, server, "PUT", "/api/interfaces/"+ifName, map[string]any{"vlans": []int{}}, nil)
	if resp := do(t, server, "DELETE", path, nil, nil); resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", resp.StatusCode)
	}
	if resp := do(t, server, "DELETE", "/api/vlans/abc", nil, nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
}

func TestHandler_SnapshotETag(t *testing.T) {
	h := setupTestHandler()
	server := setupTestServer(t, h)
	do(t, server, "POST", "/api/components", map[string]any{"kind": "host"}, nil)

	resp, err := http.Get(server.URL + "/api/snapshot")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	resp.Body.Close()
	etag := resp.Header.Get("ETag")
	if etag == "" || resp.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("Unexpected headers %v", resp.Header)
	}

	req, _ := http.NewRequest("GET", server.URL+"/api/snapshot", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotModified {
		t.Errorf("Expected status 304, got %d", resp.StatusCode)
	}

	do(t, server, "POST", "/api/components", map[string]any{"kind": "vm"}, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 after a change, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/api/snapshot?format=yaml")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.Header.Get("Content-Type") != "application/yaml" || !strings.Contains(string(body), "vm_2") {
		t.Errorf("Unexpected yaml snapshot: %s", body)
	}

	if resp := do(t, server, "GET", "/api/snapshot?format=xml", nil, nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
	if resp := do(t, server, "GET", "/api/snapshot?group=nope", nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
}

func TestHandler_Layout(t *testing.T) {
	server := setupTestServer(t, setupTestHandler())
	for i := 0; i < 3; i++ {
		do(t, server, "POST", "/api/components", map[string]any{"kind": "host"}, nil)
	}

	var out map[string]any
	if resp := do(t, server, "POST", "/api/layout/"+model.GlobalGroup, nil, &out); resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if out["moved"].(float64) != 3 || out["engine"] != "grid" {
		t.Errorf("Unexpected layout result %v", out)
	}
	if resp := do(t, server, "POST", "/api/layout/"+model.GlobalGroup+"?engine=force", nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown engine, got %d", resp.StatusCode)
	}
}

func TestHandler_ImportAndChanges(t *testing.T) {
	store := topology.New()
	h := NewHandler(store,
		WithImporter(snmpimport.NewImporter(store, fakeWalker{{Index: 1, Descr: "ge-0/0/1"}, {Index: 2, Descr: "ge-0/0/2"}})),
		WithChangeLog(fakeChangeLog{{ID: "a"}, {ID: "b"}, {ID: "c"}}),
	)
	server := setupTestServer(t, h)

	var view model.ComponentView
	if resp := do(t, server, "POST", "/api/import/snmp", map[string]string{"target": "192.0.2.10", "label": "access-1"}, &view); resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}
	if view.Component.Kind != model.KindSwitch || len(view.Interfaces) != 2 {
		t.Errorf("Unexpected import %+v", view)
	}

	var changes []mirror.Change
	do(t, server, "GET", "/api/changes?limit=2", nil, &changes)
	if len(changes) != 2 {
		t.Errorf("Expected 2 changes, got %d", len(changes))
	}

	plain := setupTestServer(t, setupTestHandler())
	if resp := do(t, plain, "POST", "/api/import/snmp", map[string]string{"target": "x"}, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404 without importer, got %d", resp.StatusCode)
	}
	if resp := do(t, plain, "GET", "/api/changes", nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404 without change log, got %d", resp.StatusCode)
	}
}
