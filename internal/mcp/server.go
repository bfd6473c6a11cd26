package mcp

import (
	"database/sql"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sabis-tools/sabis/internal/config"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"extract_assignments": {
		def:     extractAssignmentsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExtractAssignments },
	},
	"extract_exams": {
		def:     extractExamsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExtractExams },
	},
	"collect_assignments": {
		def:     collectAssignmentsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCollectAssignments },
	},
	"collect_exams": {
		def:     collectExamsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCollectExams },
	},
	"project_grade": {
		def:     projectGradeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectGrade },
	},
	"calendar_url": {
		def:     calendarURLToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCalendarURL },
	},
	"list_snapshots": {
		def:     listSnapshotsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListSnapshots },
	},
	"purge_snapshots": {
		def:     purgeSnapshotsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePurgeSnapshots },
	},
	"export_snapshots": {
		def:     exportSnapshotsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExportSnapshots },
	},
	"import_snapshots": {
		def:     importSnapshotsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImportSnapshots },
	},
}

// AllToolNames returns the sorted list of all valid tool names.
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

// NewServer creates a new MCP server with the sabis tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, portal Portal, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"sabis",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, portal)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
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

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, portal Portal, version string) error {
	s := NewServer(db, cfg, portal, version)
	return server.ServeStdio(s)
}
