// Package conversation owns durable conversation state: the on-disk store,
// the in-process cache, and the manager that mediates between them.
package conversation

import "time"

// Message roles. A conversation holds at most one leading system message,
// inserted only at creation time.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in a conversation transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Parameters holds the five sampling controls sent with every completion
// request. A stored conversation always carries a fully resolved set.
type Parameters struct {
	Temperature      float64 `json:"temperature" yaml:"temperature"`
	MaxTokens        int     `json:"max_tokens" yaml:"max_tokens"`
	TopP             float64 `json:"top_p" yaml:"top_p"`
	FrequencyPenalty float64 `json:"frequency_penalty" yaml:"frequency_penalty"`
	PresencePenalty  float64 `json:"presence_penalty" yaml:"presence_penalty"`
}

// ParameterOverrides carries optional per-call overrides. Each field is
// resolved independently: a nil field falls through to the next layer
// (conversation-stored value, then process default).
type ParameterOverrides struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
}

// Apply returns a copy of base with every non-nil override applied.
func (o *ParameterOverrides) Apply(base Parameters) Parameters {
	if o == nil {
		return base
	}
	out := base
	if o.Temperature != nil {
		out.Temperature = *o.Temperature
	}
	if o.MaxTokens != nil {
		out.MaxTokens = *o.MaxTokens
	}
	if o.TopP != nil {
		out.TopP = *o.TopP
	}
	if o.FrequencyPenalty != nil {
		out.FrequencyPenalty = *o.FrequencyPenalty
	}
	if o.PresencePenalty != nil {
		out.PresencePenalty = *o.PresencePenalty
	}
	return out
}

// Metadata is the open, schema-agnostic annotation record attached to a
// conversation. "title" and "tags" are recognized; everything else passes
// through untouched.
type Metadata map[string]any

// Title returns the "title" entry if it is a string.
func (m Metadata) Title() string {
	if s, ok := m["title"].(string); ok {
		return s
	}
	return ""
}

// Tags returns the "tags" entry normalized to a string slice. JSON
// round-trips decode arrays as []any, so both representations are accepted.
func (m Metadata) Tags() []string {
	switch v := m["tags"].(type) {
	case []string:
		return v
	case []any:
		tags := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	default:
		return nil
	}
}

// HasTags reports whether the conversation carries every tag in want.
func (m Metadata) HasTags(want []string) bool {
	have := m.Tags()
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Conversation is the aggregate root: identity, sampling parameters, the
// ordered transcript, and open metadata. IDs are sequential decimal strings
// and immutable after creation. Messages are append-only from the outside.
type Conversation struct {
	ID         string      `json:"id"`
	Model      string      `json:"model"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Parameters *Parameters `json:"parameters,omitempty"`
	Messages   []Message   `json:"messages"`
	Metadata   Metadata    `json:"metadata,omitempty"`
}

// clone returns a copy of c with its own message slice, so appends on the
// copy never show through a still-cached original.
func (c *Conversation) clone() *Conversation {
	cp := *c
	cp.Messages = append([]Message(nil), c.Messages...)
	return &cp
}

// Summary is the listing projection of a Conversation: everything except
// the transcript and parameters, plus the message count.
type Summary struct {
	ID           string    `json:"id"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Metadata     Metadata  `json:"metadata,omitempty"`
	MessageCount int       `json:"message_count"`
}

// Summarize builds the listing projection for c.
func Summarize(c *Conversation) Summary {
	return Summary{
		ID:           c.ID,
		Model:        c.Model,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		Metadata:     c.Metadata,
		MessageCount: len(c.Messages),
	}
}
