package adapter

import (
	"regexp"
	"strings"
	"time"

	"github.com/hpungsan/trawl/internal/capture"
	"github.com/hpungsan/trawl/internal/extract"
	"github.com/hpungsan/trawl/internal/tree"
)

var githubPath = regexp.MustCompile(`^/([^/]+)/([^/]+)/(issues|pull|discussions)/(\d+)`)

type github struct {
	strategies []extract.Strategy
}

// NewGitHub returns the adapter for issue, pull request, and discussion pages
// on github.com. Every message on these pages is attributed to an author.
func NewGitHub() Adapter {
	return &github{strategies: []extract.Strategy{
		&extract.RoleMarker{Paths: githubPath, Rules: []extract.Rule{
			{Selector: `[data-testid="issue-body"]`, Role: capture.RoleAuthor},
			{Selector: `[data-testid="comment-viewer-outer-box"]`, Role: capture.RoleAuthor},
			{Selector: ".timeline-comment", Role: capture.RoleAuthor},
		}},
		&extract.ClassPattern{Paths: githubPath, Rules: []extract.Rule{
			{Selector: ".comment-body, .js-comment-body", Role: capture.RoleAuthor},
		}},
		&extract.Heuristic{Paths: githubPath, Selector: "main p, main div", DenyList: denyList("GitHub")},
	}}
}

func (g *github) Name() string                   { return "github" }
func (g *github) Hosts() []string                { return []string{"github.com"} }
func (g *github) Strategies() []extract.Strategy { return g.strategies }

func (g *github) Defaults() Settings {
	return Settings{PollInterval: 5000 * time.Millisecond, MinMessageLength: 20}
}

func (g *github) Describe(t tree.Tree, ctx extract.PageContext) capture.Page {
	page := capture.Page{
		Source:   "github",
		Type:     capture.TypeIssue,
		URL:      ctx.URL,
		Metadata: map[string]string{},
	}

	if m := githubPath.FindStringSubmatch(ctx.Path()); m != nil {
		page.Repository = m[1] + "/" + m[2]
		page.Metadata[capture.MetaNumber] = m[4]
		switch m[3] {
		case "pull":
			page.Type = capture.TypePullRequest
		case "discussions":
			page.Type = capture.TypeDiscussion
		}
	}

	page.Title = strings.TrimSpace(tree.FirstText(t, `.js-issue-title, bdi.markdown-title, [data-testid="issue-title"]`))
	if page.Title == "" {
		title := ctx.Title
		if title == "" {
			title = tree.FirstText(t, "title")
		}
		page.Title = trimTitle(title, "· GitHub")
	}

	if state := tree.FirstText(t, `.State, [data-testid="header-state"]`); state != "" {
		page.State = strings.ToLower(strings.TrimSpace(state))
	}
	if author := tree.FirstText(t, ".author"); author != "" {
		page.Metadata[capture.MetaAuthor] = strings.TrimSpace(author)
	}

	seen := map[string]bool{}
	for _, n := range t.Query(".IssueLabel, .js-issue-labels a") {
		label := strings.TrimSpace(t.TextOf(n))
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		page.Labels = append(page.Labels, label)
	}

	for _, n := range t.Query(".Label, .Label--secondary") {
		if strings.EqualFold(strings.TrimSpace(t.TextOf(n)), "private") {
			page.Private = true
			break
		}
	}
	return page
}
