package adapter

import (
	"regexp"
	"time"

	"github.com/hpungsan/trawl/internal/capture"
	"github.com/hpungsan/trawl/internal/extract"
	"github.com/hpungsan/trawl/internal/tree"
)

// chat is the shared shape of the conversational adapters. They differ only
// in hosts, selectors, and where the conversation id sits in the path.
type chat struct {
	name          string
	hosts         []string
	strategies    []extract.Strategy
	conversation  *regexp.Regexp
	titleSuffixes []string
}

func (c *chat) Name() string                   { return c.name }
func (c *chat) Hosts() []string                { return c.hosts }
func (c *chat) Strategies() []extract.Strategy { return c.strategies }

func (c *chat) Defaults() Settings {
	return Settings{PollInterval: 3000 * time.Millisecond, MinMessageLength: 10}
}

func (c *chat) Describe(t tree.Tree, ctx extract.PageContext) capture.Page {
	page := capture.Page{
		Source: c.name,
		Type:   capture.TypeConversation,
		URL:    ctx.URL,
	}
	title := ctx.Title
	if title == "" {
		title = tree.FirstText(t, "title")
	}
	page.Title = trimTitle(title, c.titleSuffixes...)
	if m := c.conversation.FindStringSubmatch(ctx.Path()); m != nil {
		page.ConversationID = m[1]
	}
	return page
}

func denyList(appName string) []string {
	out := make([]string, 0, len(extract.DefaultDenyList)+1)
	out = append(out, appName)
	return append(out, extract.DefaultDenyList...)
}

// NewChatGPT returns the adapter for chatgpt.com.
func NewChatGPT() Adapter {
	return &chat{
		name:  "chatgpt",
		hosts: []string{"chatgpt.com", "chat.openai.com"},
		strategies: []extract.Strategy{
			&extract.RoleMarker{Rules: []extract.Rule{
				{Selector: "[data-message-author-role]", Attr: "data-message-author-role"},
			}},
			&extract.ClassPattern{Rules: []extract.Rule{
				{Selector: `[class*="user-message"]`, Role: capture.RoleUser},
				{Selector: `[class*="assistant-message"], .markdown`, Role: capture.RoleAssistant},
			}},
			&extract.Heuristic{Selector: "main p, main div", DenyList: denyList("ChatGPT")},
		},
		conversation:  regexp.MustCompile(`^/c/([A-Za-z0-9-]+)`),
		titleSuffixes: []string{"| ChatGPT", "- ChatGPT"},
	}
}

// NewClaude returns the adapter for claude.ai.
func NewClaude() Adapter {
	return &chat{
		name:  "claude",
		hosts: []string{"claude.ai"},
		strategies: []extract.Strategy{
			&extract.RoleMarker{Rules: []extract.Rule{
				{Selector: `[data-testid="user-message"]`, Role: capture.RoleUser},
				{Selector: "[data-is-streaming]", Role: capture.RoleAssistant},
			}},
			&extract.ClassPattern{Rules: []extract.Rule{
				{Selector: ".font-user-message", Role: capture.RoleUser},
				{Selector: ".font-claude-message", Role: capture.RoleAssistant},
			}},
			&extract.Heuristic{Selector: "main p, main div", DenyList: denyList("Claude")},
		},
		conversation:  regexp.MustCompile(`^/chat/([A-Za-z0-9-]+)`),
		titleSuffixes: []string{"- Claude"},
	}
}

// NewGemini returns the adapter for gemini.google.com.
func NewGemini() Adapter {
	return &chat{
		name:  "gemini",
		hosts: []string{"gemini.google.com"},
		strategies: []extract.Strategy{
			&extract.RoleMarker{Rules: []extract.Rule{
				{Selector: "user-query", Role: capture.RoleUser},
				{Selector: "model-response", Role: capture.RoleAssistant},
			}},
			&extract.ClassPattern{Rules: []extract.Rule{
				{Selector: ".query-text", Role: capture.RoleUser},
				{Selector: ".model-response-text", Role: capture.RoleAssistant},
			}},
			&extract.Heuristic{Selector: "main p, main div", DenyList: denyList("Gemini")},
		},
		conversation:  regexp.MustCompile(`^/app/([A-Za-z0-9-]+)`),
		titleSuffixes: []string{"- Gemini"},
	}
}
