package conversation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func testManagerConfig() ManagerConfig {
	return ManagerConfig{
		DefaultModel: "default-model",
		DefaultParameters: Parameters{
			Temperature: 0.7,
			MaxTokens:   1024,
			TopP:        1.0,
		},
	}
}

func newTestManager(t *testing.T, cfg ManagerConfig) *Manager {
	t.Helper()
	store := NewStore(t.TempDir(), zerolog.Nop())
	return NewManager(store, cfg, zerolog.Nop())
}

func strPtr(s string) *string { return &s }

func TestManager_Create_Defaults(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, testManagerConfig())
	conv, err := m.Create(context.Background(), CreateInput{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if conv.ID != "1" {
		t.Errorf("expected ID 1, got %q", conv.ID)
	}
	if conv.Model != "default-model" {
		t.Errorf("expected default model, got %q", conv.Model)
	}
	if conv.Parameters == nil || conv.Parameters.Temperature != 0.7 {
		t.Errorf("expected default parameters, got %+v", conv.Parameters)
	}
	if len(conv.Messages) != 0 {
		t.Errorf("expected no seeded messages without a system prompt, got %d", len(conv.Messages))
	}
	if conv.CreatedAt.IsZero() || !conv.UpdatedAt.Equal(conv.CreatedAt) {
		t.Errorf("expected created_at == updated_at, got %v / %v", conv.CreatedAt, conv.UpdatedAt)
	}
}

func TestManager_Create_SeedsSystemMessage(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, testManagerConfig())
	conv, err := m.Create(context.Background(), CreateInput{
		Model:        "m",
		SystemPrompt: strPtr("S"),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(conv.Messages) != 1 || conv.Messages[0].Role != RoleSystem || conv.Messages[0].Content != "S" {
		t.Fatalf("expected single leading system message, got %+v", conv.Messages)
	}
}

func TestManager_Create_ParameterOverridesResolvedPerField(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, testManagerConfig())
	temp := 0.1
	conv, err := m.Create(context.Background(), CreateInput{
		Parameters: &ParameterOverrides{Temperature: &temp},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if conv.Parameters.Temperature != 0.1 {
		t.Errorf("expected overridden temperature 0.1, got %v", conv.Parameters.Temperature)
	}
	if conv.Parameters.MaxTokens != 1024 {
		t.Errorf("expected default max_tokens 1024, got %v", conv.Parameters.MaxTokens)
	}
}

func TestManager_Create_LimitReached_Fails(t *testing.T) {
	t.Parallel()

	cfg := testManagerConfig()
	cfg.MaxConversations = 2
	m := newTestManager(t, cfg)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := m.Create(ctx, CreateInput{}); err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}

	_, err := m.Create(ctx, CreateInput{})
	var ce *CreateError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CreateError at the limit, got %v", err)
	}
}

func TestManager_Get_ReadsThroughAndCaches(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir, zerolog.Nop())
	if err := store.Write(testConversation("1")); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}
	m := NewManager(store, testManagerConfig(), zerolog.Nop())

	ctx := context.Background()
	if _, err := m.Get(ctx, "1"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// The record now lives in the cache: removing the file must not break
	// subsequent reads within this process lifetime.
	if err := os.Remove(filepath.Join(dir, "1")); err != nil {
		t.Fatal(err)
	}
	conv, err := m.Get(ctx, "1")
	if err != nil {
		t.Fatalf("cached Get failed: %v", err)
	}
	if conv.ID != "1" {
		t.Errorf("expected cached conversation 1, got %q", conv.ID)
	}
}

func TestManager_Get_Missing_ReturnsNotFound(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, testManagerConfig())
	_, err := m.Get(context.Background(), "99")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestManager_AppendMessage_Ordering(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, testManagerConfig())
	ctx := context.Background()
	conv, err := m.Create(ctx, CreateInput{SystemPrompt: strPtr("S")})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := m.AppendMessage(ctx, conv.ID, RoleUser, "hi"); err != nil {
		t.Fatalf("append user failed: %v", err)
	}
	if _, err := m.AppendMessage(ctx, conv.ID, RoleAssistant, "hello"); err != nil {
		t.Fatalf("append assistant failed: %v", err)
	}

	got, err := m.Get(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	n := len(got.Messages)
	if n != 3 {
		t.Fatalf("expected 3 messages, got %d", n)
	}
	if got.Messages[n-2].Role != RoleUser || got.Messages[n-2].Content != "hi" {
		t.Errorf("unexpected penultimate message %+v", got.Messages[n-2])
	}
	if got.Messages[n-1].Role != RoleAssistant || got.Messages[n-1].Content != "hello" {
		t.Errorf("unexpected final message %+v", got.Messages[n-1])
	}
}

func TestManager_AppendMessage_PersistsAcrossRestart(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir, zerolog.Nop())
	m := NewManager(store, testManagerConfig(), zerolog.Nop())
	ctx := context.Background()

	conv, err := m.Create(ctx, CreateInput{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := m.AppendMessage(ctx, conv.ID, RoleUser, "hi"); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	// A fresh manager over the same directory simulates a process restart:
	// the cache starts empty and the transcript comes back from disk.
	m2 := NewManager(NewStore(dir, zerolog.Nop()), testManagerConfig(), zerolog.Nop())
	got, err := m2.Get(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Get after restart failed: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hi" {
		t.Fatalf("expected persisted transcript, got %+v", got.Messages)
	}
}

func TestManager_AppendMessage_FailedWrite_LeavesCacheUntouched(t *testing.T) {
	t.Parallel()

	// Point the store at a path that cannot become a directory, so every
	// write fails while cached reads still work.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewStore(filepath.Join(blocker, "conversations"), zerolog.Nop())
	m := NewManager(store, testManagerConfig(), zerolog.Nop())

	conv := testConversation("1")
	m.cache.Put(conv)

	_, err := m.AppendMessage(context.Background(), "1", RoleUser, "doomed")
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}

	cached, ok := m.cache.Get("1")
	if !ok {
		t.Fatal("expected conversation to remain cached")
	}
	if len(cached.Messages) != 2 {
		t.Fatalf("cache mutated despite failed write: %+v", cached.Messages)
	}
}

func TestManager_Delete_ThenGet_NotFound(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, testManagerConfig())
	ctx := context.Background()
	conv, err := m.Create(ctx, CreateInput{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if !m.Delete(ctx, conv.ID) {
		t.Fatal("expected Delete to report success")
	}

	_, err = m.Get(ctx, conv.ID)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError after delete, got %v", err)
	}
}

func TestManager_Delete_Absent_ReportsFalse(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, testManagerConfig())
	if m.Delete(context.Background(), "404") {
		t.Error("expected Delete of absent conversation to report false")
	}
}
