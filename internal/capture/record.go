package capture

import (
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/trawl/internal/errors"
)

// Page describes the page a capture pass ran against, as reported by an adapter.
type Page struct {
	Source         string
	Type           ContentType
	Title          string
	URL            string
	ConversationID string

	// Private is the page's own visibility signal (e.g. a private repository badge).
	Private    bool
	Labels     []string
	State      string
	Repository string

	// Metadata holds adapter-specific extras copied into the record.
	Metadata map[string]string
}

// BuildInput contains parameters for Build.
type BuildInput struct {
	Page       Page
	Messages   []Message
	Strategy   string
	CapturedAt time.Time
	Tagger     *Tagger // default: NewTagger(nil)
}

// Build packages a normalized pass into a Record. Classification and privacy
// fusion always run, so a built record never has them unset.
func Build(input BuildInput) (*Record, error) {
	if len(input.Messages) == 0 {
		return nil, errors.NewRecordInvalid("record must contain at least one message")
	}
	if NormalizeTag(input.Page.Source) == "" {
		return nil, errors.NewRecordInvalid("record source is required")
	}
	if input.Page.Type == "" {
		return nil, errors.NewRecordInvalid("record content type is required")
	}
	if input.Tagger == nil {
		input.Tagger = NewTagger(nil)
	}
	if input.CapturedAt.IsZero() {
		input.CapturedAt = time.Now()
	}

	msgs := make([]Message, len(input.Messages))
	copy(msgs, input.Messages)

	content := JoinContent(msgs)
	sensitivity := Classify(content)
	page := input.Page

	tags := input.Tagger.Tag(content, TagSource{
		SourceName:  page.Source,
		ContentType: page.Type,
		Labels:      page.Labels,
		State:       page.State,
		Repository:  page.Repository,
	})

	meta := make(map[string]string, len(page.Metadata)+10)
	for k, v := range page.Metadata {
		meta[k] = v
	}
	meta[MetaURL] = page.URL
	meta[MetaSource] = page.Source
	meta[MetaCapturedAt] = input.CapturedAt.UTC().Format(time.RFC3339)
	meta[MetaContentHash] = ContentHash(msgs)
	meta[MetaMessageCount] = strconv.Itoa(len(msgs))
	if input.Strategy != "" {
		meta[MetaStrategy] = input.Strategy
	}
	if page.ConversationID != "" {
		meta[MetaConversationID] = page.ConversationID
	}
	if page.Repository != "" {
		meta[MetaRepository] = page.Repository
	}
	if page.State != "" {
		meta[MetaState] = page.State
	}
	if len(page.Labels) > 0 {
		meta[MetaLabels] = strings.Join(page.Labels, ",")
	}
	if page.Private {
		meta[MetaVisibility] = "private"
	} else if _, ok := meta[MetaVisibility]; !ok {
		meta[MetaVisibility] = "public"
	}

	return &Record{
		Type:        page.Type,
		Title:       page.Title,
		Messages:    msgs,
		Metadata:    meta,
		Tags:        tags.Sorted(),
		Sensitivity: sensitivity,
		PrivacyHint: FusePrivacy(sensitivity, page.Private),
	}, nil
}
