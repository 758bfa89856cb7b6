package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/hpungsan/trawl/internal/capture"
	"github.com/hpungsan/trawl/internal/errors"
	"github.com/hpungsan/trawl/internal/ops"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
}

// ListPageData is the template data for the capture list page.
type ListPageData struct {
	PageData
	Items      []capture.Summary
	Pagination ops.Pagination
	Source     string
	Type       string
	Tag        string
	Deleted    bool
}

// MessageView is one message prepared for the detail page.
type MessageView struct {
	Role capture.Role
	HTML template.HTML
}

// MetaEntry is one metadata row on the detail page.
type MetaEntry struct {
	Key, Value string
}

// DetailPageData is the template data for the capture detail page.
type DetailPageData struct {
	PageData
	Capture  *ops.FetchOutput
	Messages []MessageView
	Metadata []MetaEntry
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	md        goldmark.Markdown
	logger    *zap.Logger
}

// NewRenderer parses the layout and page templates from templateFS.
// Templates are embedded, so a parse failure is a programming error and panics.
func NewRenderer(templateFS fs.FS, version string, logger *zap.Logger) *Renderer {
	funcMap := template.FuncMap{
		"add":        func(a, b int) int { return a + b },
		"sub":        func(a, b int) int { return a - b },
		"formatTime": formatTime,
		"deref":      deref,
		"roleClass":  roleClass,
	}

	layout := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"list":   "list.html",
		"detail": "detail.html",
		"error":  "error.html",
	}
	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layout.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		// Raw HTML in captured text is dropped: goldmark escapes it unless WithUnsafe is set.
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger: logger,
	}
}

func (r *Renderer) page(title string) PageData {
	return PageData{Title: title, Version: r.version}
}

// renderPage renders a named page with HTTP 200.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.logger.Error("template not found", zap.String("template", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.logger.Error("template execution failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error as JSON or as the error page, depending on Accept.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	var cErr *errors.CaptureError
	if !stderrors.As(err, &cErr) {
		cErr = errors.NewInternal(err)
	}
	message := cErr.Message
	if cErr.Code == errors.ErrInternal {
		r.logger.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
		message = "internal server error"
	}

	if wantsJSON(req) {
		renderJSON(w, cErr.Status, map[string]any{
			"error": map[string]any{
				"code":    string(cErr.Code),
				"message": message,
				"status":  cErr.Status,
			},
		})
		return
	}

	r.renderPageStatus(w, cErr.Status, "error", ErrorPageData{
		PageData:   r.page(fmt.Sprintf("Error %d", cErr.Status)),
		StatusCode: cErr.Status,
		Message:    message,
	})
}

// renderMarkdown converts message text to HTML.
func (r *Renderer) renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// deref returns the value of a *int64, or zero for nil.
func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
