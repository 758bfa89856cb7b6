package mcp

import (
	"context"
	"database/sql"
	"os"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/trawl/internal/config"
	"github.com/hpungsan/trawl/internal/scheduler"
)

// Tool groups, usable in disabled_types.
const (
	TypeControl = "control"
	TypeStore   = "store"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{TypeControl, TypeStore}

// toolEntry pairs a tool definition with its group and a handler factory.
type toolEntry struct {
	def     mcp.Tool
	group   string
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"capture_toggle": {
		def:     toggleToolDef,
		group:   TypeControl,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleToggle },
	},
	"capture_now": {
		def:     captureNowToolDef,
		group:   TypeControl,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCaptureNow },
	},
	"capture_status": {
		def:     statusToolDef,
		group:   TypeControl,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatus },
	},
	"capture_list": {
		def:     listToolDef,
		group:   TypeStore,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"capture_fetch": {
		def:     fetchToolDef,
		group:   TypeStore,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFetch },
	},
	"capture_delete": {
		def:     deleteToolDef,
		group:   TypeStore,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if name != TypeControl && name != TypeStore {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name, entry := range toolRegistry {
		if typeSet[entry.group] {
			tools = append(tools, name)
		}
	}
	sort.Strings(tools)
	return tools
}

// NewServer creates an MCP server with the trawl tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, sessions *scheduler.Group, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"trawl",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, sessions)

	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Serve runs the MCP server over stdio until ctx is cancelled or stdin closes.
func Serve(ctx context.Context, s *server.MCPServer) error {
	return server.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout)
}
