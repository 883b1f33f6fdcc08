// Package llmtest provides a scripted language-model client for tests.
package llmtest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MikeSquared-Agency/scribe/internal/llm"
)

// Call records one Generate invocation.
type Call struct {
	System string
	User   string
	Opts   llm.Options
}

// Reply is one scripted Generate outcome.
type Reply struct {
	Text string
	Err  error
}

// Fake replays Replies in order. Calls beyond the script fail.
type Fake struct {
	mu      sync.Mutex
	replies []Reply
	calls   []Call

	Health    llm.Health
	HealthErr error
}

// New returns a Fake that answers with replies in order.
func New(replies ...Reply) *Fake {
	return &Fake{replies: replies, Health: llm.Health{Available: true, Model: "fake-model"}}
}

// Text is a successful reply carrying text.
func Text(s string) Reply {
	return Reply{Text: s}
}

// Fail is a failed reply.
func Fail(msg string) Reply {
	return Reply{Err: errors.New(msg)}
}

func (f *Fake) Generate(_ context.Context, system, user string, opts llm.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{System: system, User: user, Opts: opts})
	if len(f.replies) == 0 {
		return "", fmt.Errorf("llmtest: unexpected call %d", len(f.calls))
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r.Text, r.Err
}

func (f *Fake) CheckHealth(context.Context) (llm.Health, error) {
	if f.HealthErr != nil {
		return llm.Health{}, f.HealthErr
	}
	return f.Health, nil
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}
