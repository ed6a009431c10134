// Package fake provides in-memory research and generation providers for
// tests.
package fake

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/ashita-ai/quill/internal/llm"
	"github.com/ashita-ai/quill/internal/model"
	"github.com/ashita-ai/quill/internal/research"
)

// Research is a research.Provider returning canned data.
type Research struct {
	Snapshot       model.ResearchSnapshot
	Suggestions    []model.KeywordSuggestion
	Related        []model.KeywordSuggestion
	RankedErr      error
	SuggestionsErr error
	RelatedErr     error

	mu    sync.Mutex
	calls []string
}

var _ research.Provider = (*Research)(nil)

func (r *Research) record(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, op)
}

// Calls returns the operations invoked so far, in order.
func (r *Research) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *Research) FetchRankedResults(_ context.Context, query string, _ research.Locale) (model.ResearchSnapshot, error) {
	r.record("ranked")
	if r.RankedErr != nil {
		return model.ResearchSnapshot{}, r.RankedErr
	}
	s := r.Snapshot
	if s.Query == "" {
		s.Query = query
	}
	return s, nil
}

func (r *Research) FetchKeywordSuggestions(_ context.Context, _ string, _ research.Locale, limit int) ([]model.KeywordSuggestion, error) {
	r.record("suggestions")
	if r.SuggestionsErr != nil {
		return nil, r.SuggestionsErr
	}
	return truncate(r.Suggestions, limit), nil
}

func (r *Research) FetchRelatedKeywords(_ context.Context, _ string, _ research.Locale, limit int) ([]model.KeywordSuggestion, error) {
	r.record("related")
	if r.RelatedErr != nil {
		return nil, r.RelatedErr
	}
	return truncate(r.Related, limit), nil
}

func truncate(list []model.KeywordSuggestion, limit int) []model.KeywordSuggestion {
	out := append([]model.KeywordSuggestion{}, list...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Reply is one scripted generation response.
type Reply struct {
	Text   string
	Tokens int
	// Fragments overrides how Text is split when the reply is streamed.
	Fragments []string
	// Err fails the call before any output.
	Err error
	// StreamErr ends a streamed reply after its fragments.
	StreamErr error
}

// ErrScriptExhausted is returned when a provider runs out of replies.
var ErrScriptExhausted = errors.New("fake: no scripted reply left")

// LLM is an llm.Provider that answers from a script, one reply per call
// regardless of whether the call is Complete or Stream.
type LLM struct {
	ProviderName string
	Replies      []Reply

	mu       sync.Mutex
	requests []llm.Request
	opened   int
	closed   int
}

var _ llm.Provider = (*LLM)(nil)

// NewLLM returns a scripted provider named name.
func NewLLM(name string, replies ...Reply) *LLM {
	return &LLM{ProviderName: name, Replies: replies}
}

func (f *LLM) Name() string {
	if f.ProviderName == "" {
		return "fake"
	}
	return f.ProviderName
}

func (f *LLM) next(req llm.Request) (Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	i := len(f.requests) - 1
	if i >= len(f.Replies) {
		return Reply{}, ErrScriptExhausted
	}
	return f.Replies[i], nil
}

func (f *LLM) Complete(_ context.Context, req llm.Request) (llm.Completion, error) {
	r, err := f.next(req)
	if err != nil {
		return llm.Completion{}, err
	}
	if r.Err != nil {
		return llm.Completion{}, r.Err
	}
	return llm.Completion{Text: r.Text, Tokens: r.Tokens, Model: f.Name() + "-model"}, nil
}

func (f *LLM) Stream(_ context.Context, req llm.Request) (*llm.Stream, error) {
	r, err := f.next(req)
	if err != nil {
		return nil, err
	}
	if r.Err != nil {
		return nil, r.Err
	}
	fragments := r.Fragments
	if fragments == nil {
		fragments = []string{r.Text}
	}
	f.mu.Lock()
	f.opened++
	f.mu.Unlock()
	return FragmentStream(f.Name(), fragments, r.StreamErr, func() {
		f.mu.Lock()
		f.closed++
		f.mu.Unlock()
	}), nil
}

// FragmentStream returns an in-memory stream that yields fragments in
// order and then ends with err, or cleanly when err is nil. onClose, when
// non-nil, runs once when the stream releases its source.
func FragmentStream(provider string, fragments []string, err error, onClose func()) *llm.Stream {
	// One quoted fragment per line keeps embedded newlines intact.
	var b strings.Builder
	for _, frag := range fragments {
		b.WriteString(strconv.Quote(frag))
		b.WriteByte('\n')
	}
	if err != nil {
		b.WriteString("!\n")
	}
	body := &fragmentBody{Reader: strings.NewReader(b.String()), onClose: onClose}
	return llm.NewStream(provider, body, func(line string) (string, bool, error) {
		if line == "!" {
			return "", false, err
		}
		text, uerr := strconv.Unquote(line)
		return text, false, uerr
	})
}

type fragmentBody struct {
	*strings.Reader
	onClose func()
}

func (b *fragmentBody) Close() error {
	if b.onClose != nil {
		b.onClose()
	}
	return nil
}

// Requests returns every request received so far.
func (f *LLM) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

// OpenStreams reports streams started but not yet released.
func (f *LLM) OpenStreams() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened - f.closed
}
