package mcp

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/martinsuchenak/netcanvas/internal/codec"
	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/geometry"
	"github.com/martinsuchenak/netcanvas/internal/log"
	"github.com/martinsuchenak/netcanvas/internal/model"
	"github.com/martinsuchenak/netcanvas/internal/topology"
	"github.com/paularlott/mcp"
)

// Version is reported to MCP clients
const Version = "1.0.0"

// Server exposes the topology store as MCP tools
type Server struct {
	mcpServer   *mcp.Server
	store       *topology.Store
	bearerToken string
}

// NewServer creates a new MCP server over store
func NewServer(store *topology.Store, bearerToken string) *Server {
	s := &Server{
		mcpServer:   mcp.NewServer("netcanvas", Version),
		store:       store,
		bearerToken: bearerToken,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	// Topology

	s.mcpServer.RegisterTool(
		mcp.NewTool("topology_stats", "Count the components, interfaces, cables, groups and networks in the topology"),
		s.handleStats,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("topology_snapshot", "Export the whole topology, or one group, as JSON or YAML",
			mcp.String("group", "Only export this group"),
			mcp.String("format", "json (default) or yaml"),
		),
		s.handleSnapshot,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("topology_synthesize", "Recompute group switches and virtual interfaces for every switch"),
		s.handleSynthesizeAll,
	)

	// Components

	s.mcpServer.RegisterTool(
		mcp.NewTool("component_create", "Create a host, switch or vm with one interface per orientation",
			mcp.String("kind", "Component kind: host, switch or vm", mcp.Required()),
			mcp.String("label", "Display label"),
			mcp.String("group", "Group name (defaults to the global group)"),
			mcp.StringArray("interfaces", "Interface orientations: TOP, RIGHT, BOTTOM or LEFT"),
		),
		s.handleComponentCreate,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("component_get", "Get a component and its interfaces",
			mcp.String("name", "Component name, e.g. host_3", mcp.Required()),
		),
		s.handleComponentGet,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("component_list", "List all components, optionally filtered by kind or group",
			mcp.String("kind", "Filter by kind"),
			mcp.String("group", "Filter by group name"),
		),
		s.handleComponentList,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("component_delete", "Delete a component with its interfaces and cables",
			mcp.String("name", "Component name", mcp.Required()),
		),
		s.handleComponentDelete,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("group_set", "Move a component into a group, creating the group if needed",
			mcp.String("name", "Component name", mcp.Required()),
			mcp.String("group", "Group name", mcp.Required()),
		),
		s.handleComponentSetGroup,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("interface_add", "Add an interface to a component",
			mcp.String("component", "Component name", mcp.Required()),
			mcp.String("orientation", "TOP, RIGHT, BOTTOM or LEFT", mcp.Required()),
			mcp.String("label", "Interface label"),
		),
		s.handleInterfaceAdd,
	)

	// Cables

	s.mcpServer.RegisterTool(
		mcp.NewTool("cable_connect", "Connect two free interfaces with a cable",
			mcp.String("left", "Interface name", mcp.Required()),
			mcp.String("right", "Interface name", mcp.Required()),
			mcp.String("group_interface", "Optional gateway id to route the cable through"),
		),
		s.handleCableConnect,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("cable_delete", "Remove a cable",
			mcp.String("name", "Cable name", mcp.Required()),
		),
		s.handleCableDelete,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("switch_synthesize", "Recompute the group boundaries of one switch",
			mcp.String("name", "Switch name", mcp.Required()),
		),
		s.handleSwitchSynthesize,
	)

	// Addressing

	s.mcpServer.RegisterTool(
		mcp.NewTool("network_list", "List registered networks"),
		s.handleNetworkList,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("network_register", "Register a network in CIDR notation",
			mcp.String("cidr", "Network, e.g. 10.0.0.0/24", mcp.Required()),
		),
		s.handleNetworkRegister,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("network_next_ip", "Get the next free address of a network without reserving it",
			mcp.String("cidr", "Network CIDR", mcp.Required()),
		),
		s.handleNetworkNextIP,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("address_assign", "Assign an address to an interface, allocating the next free one when address is empty",
			mcp.String("interface", "Interface name", mcp.Required()),
			mcp.String("cidr", "Network CIDR", mcp.Required()),
			mcp.String("address", "Address to assign"),
		),
		s.handleAddressAssign,
	)

	// VLANs

	s.mcpServer.RegisterTool(
		mcp.NewTool("vlan_save", "Create a VLAN by name or update an existing one",
			mcp.String("name", "VLAN name", mcp.Required()),
			mcp.String("id", "802.1Q id (allocated when empty)"),
			mcp.String("color", "Display colour, e.g. #ff0000"),
		),
		s.handleVLANSave,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("vlan_delete", "Delete a VLAN and untag it from every interface",
			mcp.String("id", "802.1Q id", mcp.Required()),
		),
		s.handleVLANDelete,
	)
}

// HandleRequest handles MCP HTTP requests with optional bearer token authentication
func (s *Server) HandleRequest(w http.ResponseWriter, r *http.Request) {
	log.Debug("MCP request received", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)

	if s.bearerToken != "" {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			log.Warn("MCP request missing Authorization header", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Missing Authorization header", http.StatusUnauthorized)
			return
		}
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			log.Warn("MCP request invalid Authorization format", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Invalid Authorization format", http.StatusUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.bearerToken)) != 1 {
			log.Warn("MCP request invalid token", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}
	}

	s.mcpServer.HandleRequest(w, r)
}

// toolError maps store errors onto MCP errors
func toolError(op string, err error) error {
	if errs.Is(err, errs.InvalidArgument) || errs.Is(err, errs.NotFound) {
		log.Warn("MCP "+op+" rejected", "error", err)
		return mcp.NewToolErrorInvalidParams(err.Error())
	}
	log.Error("MCP "+op+" failed", "error", err)
	return mcp.NewToolErrorInternal(op + " failed: " + err.Error())
}

func required(req *mcp.ToolRequest, name string) (string, error) {
	v, err := req.String(name)
	if err != nil || strings.TrimSpace(v) == "" {
		return "", mcp.NewToolErrorInvalidParams(name + " is required")
	}
	return v, nil
}

func (s *Server) handleStats(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	return mcp.NewToolResponseText(formatStats(s.store.Stats())), nil
}

func (s *Server) handleSnapshot(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	format, err := codec.ParseFormat(req.StringOr("format", ""))
	if err != nil {
		return nil, toolError("snapshot", err)
	}
	snap, err := s.snapshot(req.StringOr("group", ""))
	if err != nil {
		return nil, toolError("snapshot", err)
	}
	body, err := codec.Marshal(format, snap)
	if err != nil {
		return nil, toolError("snapshot", err)
	}
	return mcp.NewToolResponseText(string(body)), nil
}

// snapshot returns the full snapshot, or one group with the shared tables
func (s *Server) snapshot(group string) (model.Snapshot, error) {
	if group == "" {
		return s.store.Snapshot(), nil
	}
	return s.store.GroupSnapshot(group)
}

func (s *Server) handleSynthesizeAll(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	if err := s.store.SynthesizeAll(); err != nil {
		return nil, toolError("synthesize", err)
	}
	log.Info("MCP topology synthesized")
	return mcp.NewToolResponseText(formatStats(s.store.Stats())), nil
}

// Component tool handlers

func (s *Server) handleComponentCreate(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	kindText, err := required(req, "kind")
	if err != nil {
		return nil, err
	}
	kind, err := model.ParseKind(kindText)
	if err != nil {
		return nil, toolError("component create", err)
	}
	orientations, _ := req.StringSlice("interfaces")
	sides := make([]geometry.Side, 0, len(orientations))
	for _, o := range orientations {
		side, err := geometry.ParseSide(o)
		if err != nil {
			return nil, toolError("component create", err)
		}
		sides = append(sides, side)
	}

	c, err := s.store.CreateComponent(topology.ComponentSpec{
		Kind:         kind,
		Label:        req.StringOr("label", ""),
		Group:        req.StringOr("group", ""),
		Orientations: sides,
	})
	if err != nil {
		return nil, toolError("component create", err)
	}
	log.Info("MCP component created", "name", c.Name, "kind", c.Kind)
	return s.componentResponse(c.Name)
}

func (s *Server) handleComponentGet(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	name, err := required(req, "name")
	if err != nil {
		return nil, err
	}
	return s.componentResponse(name)
}

func (s *Server) handleComponentList(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	kind := req.StringOr("kind", "")
	group := req.StringOr("group", "")
	groupID := ""
	if group != "" {
		g, err := s.store.GetGroup(group)
		if err != nil {
			return nil, toolError("component list", err)
		}
		groupID = g.ID
	}

	var result strings.Builder
	count := 0
	for _, c := range s.store.ListComponents() {
		if kind != "" && !strings.EqualFold(string(c.Kind), kind) {
			continue
		}
		if groupID != "" && c.Group != groupID {
			continue
		}
		result.WriteString(s.formatComponentSummary(c, nil))
		result.WriteString("\n")
		count++
	}
	if count == 0 {
		return mcp.NewToolResponseText("No components found"), nil
	}
	return mcp.NewToolResponseText(fmt.Sprintf("Found %d components:\n\n%s", count, result.String())), nil
}

func (s *Server) handleComponentDelete(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	name, err := required(req, "name")
	if err != nil {
		return nil, err
	}
	if err := s.store.RemoveComponent(name); err != nil {
		return nil, toolError("component delete", err)
	}
	log.Info("MCP component deleted", "name", name)
	return mcp.NewToolResponseText("Component " + name + " deleted"), nil
}

func (s *Server) handleComponentSetGroup(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	name, err := required(req, "name")
	if err != nil {
		return nil, err
	}
	group, err := required(req, "group")
	if err != nil {
		return nil, err
	}
	if err := s.store.SetGroup(name, group); err != nil {
		return nil, toolError("set group", err)
	}
	s.resynthesize(name)
	log.Info("MCP component regrouped", "name", name, "group", group)
	return s.componentResponse(name)
}

func (s *Server) handleInterfaceAdd(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	component, err := required(req, "component")
	if err != nil {
		return nil, err
	}
	orientation, err := required(req, "orientation")
	if err != nil {
		return nil, err
	}
	side, err := geometry.ParseSide(orientation)
	if err != nil {
		return nil, toolError("interface add", err)
	}
	iface, err := s.store.AddInterface(component, topology.InterfaceSpec{
		Orientation: side,
		Label:       req.StringOr("label", ""),
	})
	if err != nil {
		return nil, toolError("interface add", err)
	}
	log.Info("MCP interface added", "name", iface.Name, "component", component)
	return mcp.NewToolResponseText(formatInterface(iface)), nil
}

// Cable tool handlers

func (s *Server) handleCableConnect(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	left, err := required(req, "left")
	if err != nil {
		return nil, err
	}
	right, err := required(req, "right")
	if err != nil {
		return nil, err
	}
	cable, err := s.store.Connect(topology.CableSpec{
		Left:           left,
		Right:          right,
		GroupInterface: req.StringOr("group_interface", ""),
	})
	if err != nil {
		return nil, toolError("cable connect", err)
	}
	s.resynthesize(s.owners(cable)...)
	log.Info("MCP cable connected", "name", cable.Name, "left", left, "right", right)
	return mcp.NewToolResponseText(fmt.Sprintf("Cable %s connects %s and %s\n", cable.Name, cable.Left, cable.Right)), nil
}

func (s *Server) handleCableDelete(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	name, err := required(req, "name")
	if err != nil {
		return nil, err
	}
	cable, err := s.store.GetCable(name)
	if err != nil {
		return nil, toolError("cable delete", err)
	}
	owners := s.owners(cable)
	if err := s.store.RemoveCable(name); err != nil {
		return nil, toolError("cable delete", err)
	}
	s.resynthesize(owners...)
	log.Info("MCP cable deleted", "name", name)
	return mcp.NewToolResponseText("Cable " + name + " deleted"), nil
}

func (s *Server) handleSwitchSynthesize(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	name, err := required(req, "name")
	if err != nil {
		return nil, err
	}
	if err := s.store.SynthesizeBoundaries(name); err != nil {
		return nil, toolError("switch synthesize", err)
	}
	log.Info("MCP switch synthesized", "name", name)
	return s.componentResponse(name)
}

// Addressing tool handlers

func (s *Server) handleNetworkList(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	networks := s.store.ListNetworks()
	if len(networks) == 0 {
		return mcp.NewToolResponseText("No networks registered"), nil
	}
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Found %d networks:\n\n", len(networks)))
	for _, n := range networks {
		result.WriteString(formatNetwork(n))
		result.WriteString("\n")
	}
	return mcp.NewToolResponseText(result.String()), nil
}

func (s *Server) handleNetworkRegister(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	cidr, err := required(req, "cidr")
	if err != nil {
		return nil, err
	}
	n, err := s.store.RegisterNetwork(cidr)
	if err != nil {
		return nil, toolError("network register", err)
	}
	log.Info("MCP network registered", "cidr", n.CIDR)
	return mcp.NewToolResponseText(formatNetwork(n)), nil
}

func (s *Server) handleNetworkNextIP(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	cidr, err := required(req, "cidr")
	if err != nil {
		return nil, err
	}
	ip, err := s.store.NextFreeAddress(cidr)
	if err != nil {
		return nil, toolError("next ip", err)
	}
	return mcp.NewToolResponseText(ip), nil
}

func (s *Server) handleAddressAssign(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	iface, err := required(req, "interface")
	if err != nil {
		return nil, err
	}
	cidr, err := required(req, "cidr")
	if err != nil {
		return nil, err
	}

	var cfg model.IPConfig
	if address := req.StringOr("address", ""); address != "" {
		cfg, err = s.store.AssignAddress(iface, address, cidr)
	} else {
		cfg, err = s.store.AllocateAddress(iface, cidr)
	}
	if err != nil {
		return nil, toolError("address assign", err)
	}
	log.Info("MCP address assigned", "interface", iface, "address", cfg.Address)
	return mcp.NewToolResponseText(fmt.Sprintf("%s assigned to %s from %s", cfg.Address, iface, cfg.Network)), nil
}

// VLAN tool handlers

func (s *Server) handleVLANSave(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	name, err := required(req, "name")
	if err != nil {
		return nil, err
	}
	spec := topology.VLANSpec{Name: name, Color: req.StringOr("color", "")}
	if idText := req.StringOr("id", ""); idText != "" {
		spec.ID, err = strconv.Atoi(idText)
		if err != nil {
			return nil, mcp.NewToolErrorInvalidParams("id must be a number")
		}
	}

	v, created, err := s.store.EnsureVLAN(spec)
	if err != nil {
		return nil, toolError("vlan save", err)
	}
	if !created && spec.Color != "" && spec.Color != v.Color {
		if err := s.store.SetVLANColor(v.ID, spec.Color); err != nil {
			return nil, toolError("vlan save", err)
		}
		v.Color = spec.Color
	}
	log.Info("MCP VLAN saved", "id", v.ID, "name", v.Name, "created", created)
	return mcp.NewToolResponseText(fmt.Sprintf("VLAN %d %s %s\n", v.ID, v.Name, v.Color)), nil
}

func (s *Server) handleVLANDelete(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	idText, err := required(req, "id")
	if err != nil {
		return nil, err
	}
	id, err := strconv.Atoi(idText)
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("id must be a number")
	}
	if err := s.store.RemoveVLAN(id); err != nil {
		return nil, toolError("vlan delete", err)
	}
	log.Info("MCP VLAN deleted", "id", id)
	return mcp.NewToolResponseText(fmt.Sprintf("VLAN %d deleted", id)), nil
}

// Utility functions

// owners returns the components at either end of a cable
func (s *Server) owners(c model.Cable) []string {
	var out []string
	for _, end := range []string{c.Left, c.Right} {
		if iface, err := s.store.GetInterface(end); err == nil {
			out = append(out, iface.Component)
		}
	}
	return out
}

// resynthesize refreshes the boundaries of every switch touched by a change
func (s *Server) resynthesize(components ...string) {
	seen := map[string]bool{}
	var visit func(name string)
	visit = func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		c, err := s.store.GetComponent(name)
		if err != nil || c.Kind != model.KindSwitch {
			return
		}
		if err := s.store.SynthesizeBoundaries(name); err != nil {
			log.Warn("MCP resynthesis failed", "switch", name, "error", err)
		}
	}
	for _, name := range components {
		visit(name)
		ifaces, err := s.store.ListInterfaces(name)
		if err != nil {
			continue
		}
		for _, iface := range ifaces {
			if iface.Cable == "" {
				continue
			}
			cable, err := s.store.GetCable(iface.Cable)
			if err != nil {
				continue
			}
			if peer, err := s.store.GetInterface(cable.Other(iface.Name)); err == nil {
				visit(peer.Component)
			}
		}
	}
}

func (s *Server) componentResponse(name string) (*mcp.ToolResponse, error) {
	view, err := s.store.ComponentView(name)
	if err != nil {
		return nil, toolError("component get", err)
	}
	return mcp.NewToolResponseText(s.formatComponentSummary(view.Component, view.Interfaces)), nil
}

func (s *Server) formatComponentSummary(c model.Component, ifaces map[string]model.Interface) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Name: %s\n", c.Name))
	result.WriteString(fmt.Sprintf("Kind: %s\n", c.Kind))
	if c.Label != "" {
		result.WriteString(fmt.Sprintf("Label: %s\n", c.Label))
	}
	names := s.groupNames()
	if name, ok := names[c.Group]; ok {
		result.WriteString(fmt.Sprintf("Group: %s\n", name))
	}
	if len(c.GroupSwitches) > 0 {
		groups := make([]string, 0, len(c.GroupSwitches))
		for id := range c.GroupSwitches {
			if name, ok := names[id]; ok {
				groups = append(groups, name)
			}
		}
		sort.Strings(groups)
		result.WriteString(fmt.Sprintf("Spans: %s\n", strings.Join(groups, ", ")))
	}
	if len(ifaces) > 0 {
		result.WriteString("Interfaces:\n")
		for _, name := range c.Interfaces {
			if iface, ok := ifaces[name]; ok {
				result.WriteString("  - " + formatInterface(iface))
			}
		}
	}
	return result.String()
}

// groupNames maps group identifiers to names
func (s *Server) groupNames() map[string]string {
	out := make(map[string]string)
	for _, g := range s.store.ListGroups() {
		out[g.ID] = g.Name
	}
	return out
}

func formatInterface(iface model.Interface) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("%s (%s)", iface.Name, iface.Orientation))
	if iface.Label != "" {
		result.WriteString(fmt.Sprintf(" [%s]", iface.Label))
	}
	if iface.Cable != "" {
		result.WriteString(" cable " + iface.Cable)
	}
	for _, a := range iface.Addresses {
		result.WriteString(" " + a.Address)
	}
	result.WriteString("\n")
	return result.String()
}

func formatNetwork(n model.Network) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("CIDR: %s\n", n.CIDR))
	result.WriteString(fmt.Sprintf("Usable hosts: %s\n", n.Size))
	if len(n.Allocated) > 0 {
		result.WriteString(fmt.Sprintf("Allocated: %s\n", strings.Join(n.Allocated, ", ")))
	}
	return result.String()
}

func formatStats(st topology.Stats) string {
	return fmt.Sprintf("Components: %d\nInterfaces: %d\nCables: %d\nGroups: %d\nGroup switches: %d\nGroup interfaces: %d\nVirtual interfaces: %d\nVLANs: %d\nNetworks: %d\n",
		st.Components, st.Interfaces, st.Cables, st.Groups, st.GroupSwitches,
		st.GroupInterfaces, st.VirtualInterfaces, st.VLANs, st.Networks)
}

// ToolNames returns the registered tool names
func (s *Server) ToolNames() []string {
	tools := s.mcpServer.ListTools()
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	return names
}

// GetHTTPHandler returns the HTTP handler for the MCP server
func (s *Server) GetHTTPHandler() http.HandlerFunc {
	return s.HandleRequest
}

// LogStartup logs MCP server startup information
func (s *Server) LogStartup() {
	log.Info("MCP Server initialized", "version", Version)
	if s.bearerToken != "" {
		log.Info("MCP authentication enabled", "type", "Bearer token")
	} else {
		log.Info("MCP authentication disabled")
	}
	names := s.ToolNames()
	log.Info("MCP tools registered", "count", len(names))
	for _, name := range names {
		log.Debug("MCP tool registered", "name", name)
	}
}
