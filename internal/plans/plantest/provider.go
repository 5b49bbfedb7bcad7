package plantest

import (
	"context"
	"strings"
	"sync"

	"github.com/stackpilot/stackpilot-backend/internal/llm"
)

// FakeProvider replays canned model output and counts calls.
type FakeProvider struct {
	Chunks []string // streamed fragments
	Text   string   // GenerateText answer
	Object string   // GenerateObject answer
	Err    error

	// Block, when set, makes StreamObject wait after the first chunk until
	// the context ends.
	Block bool

	mu          sync.Mutex
	StreamCalls int
	TextCalls   int
	ObjectCalls int
	LastRequest llm.ObjectRequest
}

var _ llm.Provider = (*FakeProvider)(nil)

func (f *FakeProvider) Name() string { return "fake" }

func (f *FakeProvider) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.TextCalls++
	f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	return f.Text, nil
}

func (f *FakeProvider) GenerateObject(ctx context.Context, req llm.ObjectRequest) (string, error) {
	f.mu.Lock()
	f.ObjectCalls++
	f.LastRequest = req
	f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	return f.Object, nil
}

func (f *FakeProvider) StreamObject(ctx context.Context, req llm.ObjectRequest, onDelta func(string) error) (string, error) {
	f.mu.Lock()
	f.StreamCalls++
	f.LastRequest = req
	f.mu.Unlock()

	var out strings.Builder
	for i, c := range f.Chunks {
		if err := ctx.Err(); err != nil {
			return out.String(), err
		}
		out.WriteString(c)
		if err := onDelta(c); err != nil {
			return out.String(), err
		}
		if f.Block && i == 0 {
			<-ctx.Done()
			return out.String(), ctx.Err()
		}
	}
	if f.Err != nil {
		return out.String(), f.Err
	}
	return out.String(), nil
}

func (f *FakeProvider) Calls() (stream, text, object int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.StreamCalls, f.TextCalls, f.ObjectCalls
}

// Split cuts s into n roughly equal chunks.
func Split(s string, n int) []string {
	if n <= 1 || len(s) <= n {
		return []string{s}
	}
	size := len(s) / n
	out := make([]string, 0, n+1)
	for len(s) > size {
		out = append(out, s[:size])
		s = s[size:]
	}
	return append(out, s)
}
