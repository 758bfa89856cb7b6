package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/trawl/internal/config"
	"github.com/hpungsan/trawl/internal/errors"
	"github.com/hpungsan/trawl/internal/ops"
	"github.com/hpungsan/trawl/internal/scheduler"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	sessions *scheduler.Group
}

// NewHandlers creates a new Handlers instance. A nil group means no pages
// are watched.
func NewHandlers(db *sql.DB, cfg *config.Config, sessions *scheduler.Group) *Handlers {
	if sessions == nil {
		sessions, _ = scheduler.NewGroup()
	}
	return &Handlers{db: db, cfg: cfg, sessions: sessions}
}

// SessionRequest addresses one watched page.
type SessionRequest struct {
	Session string `json:"session,omitempty"`
}

// ToggleRequest represents the arguments for capture_toggle.
type ToggleRequest struct {
	Session string `json:"session,omitempty"`
	Enabled *bool  `json:"enabled"`
}

// ListRequest represents the arguments for capture_list.
type ListRequest struct {
	Source         string `json:"source,omitempty"`
	Type           string `json:"type,omitempty"`
	Tag            string `json:"tag,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
}

// FetchRequest represents the arguments for capture_fetch.
type FetchRequest struct {
	ID              string `json:"id"`
	IncludeMessages *bool  `json:"include_messages,omitempty"`
	IncludeDeleted  bool   `json:"include_deleted,omitempty"`
}

// DeleteRequest represents the arguments for capture_delete.
type DeleteRequest struct {
	ID string `json:"id"`
}

// StatusList is returned by capture_status when no single session is addressed.
type StatusList struct {
	Sessions []scheduler.Status `json:"sessions"`
}

// HandleToggle handles the capture_toggle tool call.
func (h *Handlers) HandleToggle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ToggleRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Enabled == nil {
		return errorResult(errors.NewInvalidRequest("enabled is required")), nil
	}

	s, err := h.sessions.Get(input.Session)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := s.Toggle(ctx, *input.Enabled)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCaptureNow handles the capture_now tool call. A capture that runs
// but fails is a successful call carrying success=false.
func (h *Handlers) HandleCaptureNow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	s, err := h.sessions.Get(input.Session)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(s.CaptureNow(ctx))
}

// HandleStatus handles the capture_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if input.Session != "" || h.sessions.Len() == 1 {
		s, err := h.sessions.Get(input.Session)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(s.Status())
	}

	out := StatusList{Sessions: []scheduler.Status{}}
	for _, s := range h.sessions.All() {
		out.Sessions = append(out.Sessions, s.Status())
	}
	return successResult(out)
}

// HandleList handles the capture_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.List(ctx, h.db, ops.ListInput{
		Source:         input.Source,
		Type:           input.Type,
		Tag:            input.Tag,
		Limit:          input.Limit,
		Offset:         input.Offset,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleFetch handles the capture_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Fetch(ctx, h.db, ops.FetchInput{
		ID:              input.ID,
		IncludeDeleted:  input.IncludeDeleted,
		IncludeMessages: input.IncludeMessages,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDelete handles the capture_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Delete(ctx, h.db, ops.DeleteInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// errorResult converts an error to an MCP error result. INTERNAL errors and
// errors that are not a CaptureError never expose their details.
func errorResult(err error) *mcp.CallToolResult {
	errorObj := map[string]any{
		"code":    string(errors.ErrInternal),
		"message": "an internal error occurred",
		"status":  500,
	}

	var cErr *errors.CaptureError
	if stderrors.As(err, &cErr) && cErr.Code != errors.ErrInternal {
		errorObj = map[string]any{
			"code":    string(cErr.Code),
			"message": cErr.Message,
			"status":  cErr.Status,
		}
		if cErr.Details != nil {
			errorObj["details"] = cErr.Details
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates a successful MCP result with JSON content.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
