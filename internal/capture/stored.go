package capture

// Stored is a record as persisted by the SQLite sink.
type Stored struct {
	ID string `json:"id"`
	Record
	Source     string `json:"source"`
	URL        string `json:"url"`
	CapturedAt int64  `json:"captured_at"`
	CreatedAt  int64  `json:"created_at"`
	DeletedAt  *int64 `json:"deleted_at,omitempty"`
}

// Summary is a stored record without its messages, for listings.
type Summary struct {
	ID           string      `json:"id"`
	Source       string      `json:"source"`
	Type         ContentType `json:"type"`
	Title        string      `json:"title,omitempty"`
	URL          string      `json:"url"`
	MessageCount int         `json:"message_count"`
	Tags         []string    `json:"tags"`
	Sensitive    bool        `json:"sensitive"`
	PrivacyHint  PrivacyHint `json:"privacy_hint"`
	CapturedAt   int64       `json:"captured_at"`
	DeletedAt    *int64      `json:"deleted_at,omitempty"`
}

// Summarize returns the listing view of s.
func (s *Stored) Summarize() Summary {
	return Summary{
		ID:           s.ID,
		Source:       s.Source,
		Type:         s.Type,
		Title:        s.Title,
		URL:          s.URL,
		MessageCount: len(s.Messages),
		Tags:         s.Tags,
		Sensitive:    s.Sensitivity.Sensitive,
		PrivacyHint:  s.PrivacyHint,
		CapturedAt:   s.CapturedAt,
		DeletedAt:    s.DeletedAt,
	}
}
