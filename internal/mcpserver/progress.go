package mcpserver

import (
	"sync"

	"github.com/aiamblichus/mcp-chat-adapter/internal/domain/chat"
	"github.com/aiamblichus/mcp-chat-adapter/internal/infra/eventbus"
)

// progressRouter fans orchestrator progress events out to the tool call
// that started the task. Sinks are keyed by task ID and registered only
// for callers that sent a progress token.
type progressRouter struct {
	mu    sync.Mutex
	sinks map[string]func(chat.ProgressEvent)
}

func newProgressRouter() *progressRouter {
	return &progressRouter{sinks: make(map[string]func(chat.ProgressEvent))}
}

func (r *progressRouter) register(taskID string, sink func(chat.ProgressEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[taskID] = sink
}

func (r *progressRouter) unregister(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sinks, taskID)
}

// run consumes events until ch closes. Events for tasks without a sink are
// dropped: the caller either sent no progress token or has already returned.
func (r *progressRouter) run(ch <-chan eventbus.Event) {
	for evt := range ch {
		pe, ok := evt.Payload.(chat.ProgressEvent)
		if !ok {
			continue
		}
		r.mu.Lock()
		sink := r.sinks[pe.TaskID]
		r.mu.Unlock()
		if sink != nil {
			sink(pe)
		}
	}
}
