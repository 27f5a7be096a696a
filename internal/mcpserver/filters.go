package mcpserver

import (
	"time"

	"github.com/aiamblichus/mcp-chat-adapter/internal/domain/chat"
	"github.com/aiamblichus/mcp-chat-adapter/internal/domain/conversation"
)

// listFilter narrows a conversation listing. Conditions combine with AND;
// timestamps are RFC 3339 and compared strictly (a conversation created
// exactly at a bound is excluded).
type listFilter struct {
	Tags          []string `json:"tags,omitempty"`
	CreatedAfter  string   `json:"created_after,omitempty"`
	CreatedBefore string   `json:"created_before,omitempty"`
}

func applyFilter(items []conversation.Summary, f *listFilter) ([]conversation.Summary, error) {
	if f == nil {
		return items, nil
	}
	var after, before time.Time
	var err error
	if f.CreatedAfter != "" {
		after, err = time.Parse(time.RFC3339, f.CreatedAfter)
		if err != nil {
			return nil, &chat.ValidationError{Field: "created_after", Reason: "must be an RFC 3339 timestamp"}
		}
	}
	if f.CreatedBefore != "" {
		before, err = time.Parse(time.RFC3339, f.CreatedBefore)
		if err != nil {
			return nil, &chat.ValidationError{Field: "created_before", Reason: "must be an RFC 3339 timestamp"}
		}
	}

	out := make([]conversation.Summary, 0, len(items))
	for _, s := range items {
		if len(f.Tags) > 0 && !s.Metadata.HasTags(f.Tags) {
			continue
		}
		if !after.IsZero() && !s.CreatedAt.After(after) {
			continue
		}
		if !before.IsZero() && !s.CreatedAt.Before(before) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// paginate slices items to the requested window. limit<=0 means no limit;
// an offset past the end yields an empty page.
func paginate(items []conversation.Summary, limit, offset int) []conversation.Summary {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []conversation.Summary{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
