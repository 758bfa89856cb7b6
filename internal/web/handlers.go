package web

import (
	"database/sql"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/hpungsan/trawl/internal/capture"
	"github.com/hpungsan/trawl/internal/config"
	"github.com/hpungsan/trawl/internal/errors"
	"github.com/hpungsan/trawl/internal/ops"
)

// Handlers contains HTTP route handlers for the viewer.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	renderer *Renderer
}

// HandleList handles GET /captures.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := ops.ListInput{
		Source:         q.Get("source"),
		Type:           q.Get("type"),
		Tag:            q.Get("tag"),
		Limit:          parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:         parseIntParam(r, "offset", 0),
		IncludeDeleted: parseBoolParam(r, "include_deleted"),
	}

	result, err := ops.List(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.renderer.renderPage(w, "list", ListPageData{
		PageData:   h.renderer.page("Captures"),
		Items:      result.Items,
		Pagination: result.Pagination,
		Source:     input.Source,
		Type:       input.Type,
		Tag:        input.Tag,
		Deleted:    input.IncludeDeleted,
	})
}

// HandleDetail handles GET /captures/{id}.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	c, err := ops.Fetch(r.Context(), h.db, ops.FetchInput{
		ID:             r.PathValue("id"),
		IncludeDeleted: parseBoolParam(r, "include_deleted"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, c)
		return
	}

	msgs := make([]MessageView, len(c.Messages))
	for i, m := range c.Messages {
		msgs[i] = MessageView{Role: m.Role, HTML: h.renderer.renderMarkdown(m.Content)}
	}

	meta := make([]MetaEntry, 0, len(c.Metadata))
	for k, v := range c.Metadata {
		if v != "" {
			meta = append(meta, MetaEntry{Key: k, Value: v})
		}
	}
	sort.Slice(meta, func(i, j int) bool { return meta[i].Key < meta[j].Key })

	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData: h.renderer.page(displayTitle(c.Title, c.Source, c.ID)),
		Capture:  c,
		Messages: msgs,
		Metadata: meta,
	})
}

// HandleDelete handles DELETE /captures/{id} and the form fallback
// POST /captures/{id}/delete.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Delete(r.Context(), h.db, ops.DeleteInput{ID: r.PathValue("id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	http.Redirect(w, r, "/captures", http.StatusSeeOther)
}

// HandlePurge handles POST /captures/purge.
func (h *Handlers) HandlePurge(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest(`confirm parameter must be "true"`))
		return
	}

	input := ops.PurgeInput{Source: ptrString(r.FormValue("source"))}
	if days := r.FormValue("older_than_days"); days != "" {
		d, err := strconv.Atoi(days)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("older_than_days must be an integer"))
			return
		}
		input.OlderThanDays = &d
	}

	result, err := ops.Purge(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	http.Redirect(w, r, "/captures?include_deleted=true", http.StatusSeeOther)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

// ptrString returns a pointer to s if non-blank, nil otherwise.
func ptrString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// displayTitle falls back from the page title to source plus a short ID.
func displayTitle(title, source, id string) string {
	if title != "" {
		return title
	}
	if len(id) > 10 {
		id = id[:10] + "..."
	}
	if source == "" {
		return id
	}
	return source + " " + id
}

func roleClass(r capture.Role) string {
	if r.Known() {
		return "msg-" + string(r)
	}
	return "msg-unknown"
}
