package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ManagerConfig carries the process-wide defaults applied when a create
// request leaves a field unset.
type ManagerConfig struct {
	DefaultModel        string
	DefaultSystemPrompt string
	DefaultParameters   Parameters

	// MaxConversations rejects creation once the store holds this many
	// records. Zero means unlimited.
	MaxConversations int
}

// Manager is the single entry point for conversation lifecycle. It mediates
// between the cache and the store: reads prefer the cache, writes go to disk
// first and only touch the cache once the write has succeeded.
type Manager struct {
	store *Store
	cache *Cache
	cfg   ManagerConfig
	locks *KeyedMutex
	log   zerolog.Logger
}

// NewManager wires a Manager over the given store.
func NewManager(store *Store, cfg ManagerConfig, log zerolog.Logger) *Manager {
	return &Manager{
		store: store,
		cache: NewCache(),
		cfg:   cfg,
		locks: NewKeyedMutex(),
		log:   log,
	}
}

// CreateInput is the argument set for Create. Unset fields fall back to the
// process-wide defaults in ManagerConfig.
type CreateInput struct {
	Model        string
	SystemPrompt *string
	Parameters   *ParameterOverrides
	Metadata     Metadata
}

// Create builds a new conversation, allocates its ID, and writes it through
// to disk and cache. The transcript is seeded with a single system message
// iff a system prompt was supplied (explicitly or via the default).
func (m *Manager) Create(ctx context.Context, in CreateInput) (*Conversation, error) {
	if m.cfg.MaxConversations > 0 {
		n, err := m.store.Count()
		if err != nil {
			return nil, &CreateError{Err: err}
		}
		if n >= m.cfg.MaxConversations {
			return nil, &CreateError{Err: fmt.Errorf("conversation limit reached (%d)", m.cfg.MaxConversations)}
		}
	}

	model := in.Model
	if model == "" {
		model = m.cfg.DefaultModel
	}
	prompt := m.cfg.DefaultSystemPrompt
	if in.SystemPrompt != nil {
		prompt = *in.SystemPrompt
	}
	params := in.Parameters.Apply(m.cfg.DefaultParameters)

	now := time.Now().UTC()
	conv := &Conversation{
		Model:      model,
		CreatedAt:  now,
		UpdatedAt:  now,
		Parameters: &params,
		Messages:   []Message{},
		Metadata:   in.Metadata,
	}
	if prompt != "" {
		conv.Messages = append(conv.Messages, Message{Role: RoleSystem, Content: prompt})
	}

	if err := m.store.Create(conv); err != nil {
		return nil, &CreateError{Err: err}
	}
	m.cache.Put(conv)
	m.log.Debug().Str("id", conv.ID).Str("model", conv.Model).Msg("conversation created")
	return conv, nil
}

// Get returns the cached copy when present, otherwise reads through the
// store and populates the cache.
func (m *Manager) Get(ctx context.Context, id string) (*Conversation, error) {
	if conv, ok := m.cache.Get(id); ok {
		return conv, nil
	}
	conv, err := m.store.Read(id)
	if err != nil {
		return nil, err
	}
	m.cache.Put(conv)
	return conv, nil
}

// Update bumps updated_at and persists conv. The disk write happens first;
// the cache entry is refreshed only after the write succeeds, so a failed
// update never leaves the cache ahead of disk.
func (m *Manager) Update(ctx context.Context, conv *Conversation) error {
	conv.UpdatedAt = time.Now().UTC()
	if err := m.store.Write(conv); err != nil {
		return err
	}
	m.cache.Put(conv)
	return nil
}

// AppendMessage appends one message to the end of the transcript and
// persists the result. This is the only sanctioned mutation path for
// message history. The conversation's lock is held for the whole
// load→append→persist sequence.
func (m *Manager) AppendMessage(ctx context.Context, id, role, content string) (*Conversation, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	conv, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// Mutate a copy: the cached record must not change unless the disk
	// write in Update succeeds.
	next := conv.clone()
	next.Messages = append(next.Messages, Message{Role: role, Content: content})
	if err := m.Update(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// List delegates to the store. Filtering and pagination are the caller's
// concern.
func (m *Manager) List(ctx context.Context) ([]Summary, error) {
	return m.store.List()
}

// Delete evicts the conversation from the cache unconditionally and then
// attempts store deletion, reporting whether the store removal succeeded.
// Delete is best-effort: store failures are logged, not propagated.
func (m *Manager) Delete(ctx context.Context, id string) bool {
	unlock := m.locks.Lock(id)
	defer unlock()

	m.cache.Delete(id)
	ok := m.store.Delete(id)
	if !ok {
		m.log.Debug().Str("id", id).Msg("store delete reported failure")
	}
	return ok
}
