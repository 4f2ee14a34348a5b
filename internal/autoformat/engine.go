package autoformat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/jcorbin/autoblock/internal/blocks"
	"github.com/jcorbin/autoblock/internal/mdrender"
)

var (
	// ErrBusy is reported with Dropped outcomes.
	ErrBusy = errors.New("transformation already in flight")

	// ErrStoreIdentity is reported when a block store's dynamic type cannot
	// identify it, e.g. a value type holding a slice.
	ErrStoreIdentity = errors.New("block store is not comparable")
)

// Status summarizes what Handle did with one input event.
type Status int

const (
	// Ignored: no sentinel, or a read-only span; nothing evaluated.
	Ignored Status = iota
	// Dropped: a transformation of the same block was still in flight.
	Dropped
	// NoMatch: evaluated, but no shorthand grammar matched.
	NoMatch
	// Transformed: the text block was replaced by a structured block.
	Transformed
	// Aborted: rendering failed; the document was not touched.
	Aborted
	// Failed: the block store rejected the replace, or a step panicked.
	Failed
)

func (st Status) String() string {
	switch st {
	case Ignored:
		return "ignored"
	case Dropped:
		return "dropped"
	case NoMatch:
		return "no-match"
	case Transformed:
		return "transformed"
	case Aborted:
		return "aborted"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(st))
	}
}

// MarshalText renders the status name into JSON messages.
func (st Status) MarshalText() ([]byte, error) { return []byte(st.String()), nil }

func (st *Status) UnmarshalText(text []byte) error {
	for s := Ignored; s <= Failed; s++ {
		if s.String() == string(text) {
			*st = s
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Outcome reports the result of handling one input event.
type Outcome struct {
	Status Status
	Index  int
	Match  Match // nil unless recognition ran

	// Content is what the edited span should keep showing: the sentinel
	// stripped content after NoMatch, the verbatim raw content otherwise.
	Content string

	Err error // set for Dropped, Aborted, and Failed
}

// Config holds Engine options; the zero value is usable.
type Config struct {
	Sentinel       string // defaults to Sentinel
	MultiItemLists bool
	Logger         *slog.Logger
}

// Engine runs the detect, recognize, and transform pipeline for input events.
// It is safe for concurrent use; at most one transformation per block store
// and index is in flight at a time.
type Engine struct {
	det    Detector
	rec    Recognizer
	tr     Transformer
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[inflightKey]struct{}
}

// inflightKey identifies a block; stores must be comparable, which pointers
// (as *MemStore) are.
type inflightKey struct {
	store blocks.Store
	index int
}

// New creates an engine rendering with r.
func New(r mdrender.Renderer, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		det:      Detector{Sentinel: cfg.Sentinel},
		rec:      Recognizer{Renderer: r, MultiItemLists: cfg.MultiItemLists},
		logger:   logger,
		inflight: make(map[inflightKey]struct{}),
	}
}

// Recognize classifies content the way Handle would after detection,
// without touching any store.
func (eng *Engine) Recognize(ctx context.Context, content string) (Match, error) {
	return eng.rec.Recognize(ctx, Canonicalize(content))
}

// Handle evaluates one content-changed notification for span against store.
// It never panics and never returns an error directly: failures are reported
// in the Outcome and leave the original text block in place.
func (eng *Engine) Handle(ctx context.Context, store blocks.Store, span Span) (out Outcome) {
	out = Outcome{Status: Ignored, Index: span.Index, Content: span.Content}
	defer func() {
		if e := recover(); e != nil {
			out.Status = Failed
			out.Content = span.Content
			out.Err = fmt.Errorf("autoformat panic: %v", e)
			eng.logger.Error("transformation panicked", "index", span.Index, "err", out.Err)
		}
	}()

	ev, ok := eng.det.Evaluate(span)
	if !ok {
		return out
	}

	if store == nil || !reflect.TypeOf(store).Comparable() {
		out.Status = Failed
		out.Err = fmt.Errorf("%w: %T", ErrStoreIdentity, store)
		eng.logger.Error("block store cannot be guarded", "index", ev.Index, "err", out.Err)
		return out
	}
	key := inflightKey{store, ev.Index}
	if !eng.acquire(key) {
		eng.logger.Debug("transformation in flight, dropping trigger", "index", ev.Index)
		out.Status = Dropped
		out.Err = ErrBusy
		return out
	}
	defer eng.release(key)

	m, err := eng.rec.Recognize(ctx, Canonicalize(ev.Content))
	if err != nil {
		eng.logger.Warn("transformation aborted", "index", ev.Index, "err", err)
		out.Status = Aborted
		out.Err = err
		return out
	}
	out.Match = m

	if _, none := m.(None); none {
		eng.logger.Debug("no shorthand matched", "index", ev.Index)
		out.Status = NoMatch
		out.Content = ev.Content
		return out
	}

	if _, err := eng.tr.Apply(m, ev.Index, store); err != nil {
		var serr *StoreMutationError
		if errors.As(err, &serr) {
			eng.logger.Error("block store rejected transformation",
				"index", ev.Index, "op", serr.Op, "at", serr.Index, "err", serr.Err)
		}
		out.Status = Failed
		out.Err = err
		return out
	}

	eng.logger.Info("transformed block", "index", ev.Index, "match", m)
	out.Status = Transformed
	return out
}

func (eng *Engine) acquire(key inflightKey) bool {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	if _, busy := eng.inflight[key]; busy {
		return false
	}
	eng.inflight[key] = struct{}{}
	return true
}

func (eng *Engine) release(key inflightKey) {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	delete(eng.inflight, key)
}
