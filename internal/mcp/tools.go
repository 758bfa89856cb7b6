package mcp

import "github.com/mark3labs/mcp-go/mcp"

const sessionDesc = "Session name of the watched page. Optional when exactly one page is watched."

var toggleToolDef = mcp.NewTool("capture_toggle",
	mcp.WithDescription("Enable or disable automatic capture for a watched page. The timer keeps running while disabled; the setting persists per source."),
	mcp.WithString("session", mcp.Description(sessionDesc)),
	mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("true to capture, false to pause")),
	mcp.WithIdempotentHintAnnotation(true),
)

var captureNowToolDef = mcp.NewTool("capture_now",
	mcp.WithDescription("Capture the page immediately, even if its content has not changed since the last capture. Returns the dispatch result."),
	mcp.WithString("session", mcp.Description(sessionDesc)),
)

var statusToolDef = mcp.NewTool("capture_status",
	mcp.WithDescription("Report capture state: whether capturing, message count of the last capture, conversation ID, and scheduler phase. Without a session, reports every watched page."),
	mcp.WithString("session", mcp.Description(sessionDesc)),
	mcp.WithReadOnlyHintAnnotation(true),
)

var listToolDef = mcp.NewTool("capture_list",
	mcp.WithDescription("List stored captures, newest first, without message bodies."),
	mcp.WithString("source", mcp.Description("Filter by source: chatgpt, claude, gemini, github")),
	mcp.WithString("type", mcp.Description("Filter by content type"),
		mcp.Enum("conversation", "issue", "pull-request", "discussion")),
	mcp.WithString("tag", mcp.Description("Filter by exact tag")),
	mcp.WithNumber("limit", mcp.Description("Max items (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted captures")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var fetchToolDef = mcp.NewTool("capture_fetch",
	mcp.WithDescription("Fetch one stored capture with its messages."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capture ID (ULID)")),
	mcp.WithBoolean("include_messages", mcp.Description("Include message bodies (default true)")),
	mcp.WithBoolean("include_deleted", mcp.Description("Allow fetching a soft-deleted capture")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var deleteToolDef = mcp.NewTool("capture_delete",
	mcp.WithDescription("Soft-delete a stored capture. Purge from the CLI to remove it permanently."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capture ID (ULID)")),
	mcp.WithDestructiveHintAnnotation(true),
)
