// Package pipeline orchestrates one document generation: snapshot the
// registry, encode every image, compose the page markup, and drive the
// render backend. At most one generation runs at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/picpress/picpress/internal/compose"
	"github.com/picpress/picpress/internal/encode"
	"github.com/picpress/picpress/internal/layout"
	"github.com/picpress/picpress/internal/registry"
	"github.com/picpress/picpress/internal/render"
	"github.com/picpress/picpress/internal/sink"
)

// State is the lifecycle of a generation run.
type State string

const (
	StateIdle      State = "idle"
	StateEncoding  State = "encoding"
	StateComposing State = "composing"
	StateRendering State = "rendering"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

var (
	// ErrGenerationInProgress rejects a Generate call made while another
	// run is active. The new call is rejected immediately, never queued.
	ErrGenerationInProgress = errors.New("a generation is already in progress")

	// ErrEmptyRegistry rejects a Generate call on an empty image list
	// before the run starts.
	ErrEmptyRegistry = errors.New("no images selected")
)

// EncodeError records which image in the snapshot failed and why.
type EncodeError struct {
	Index int
	ID    string
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("image %d (%s): %v", e.Index+1, e.ID, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Options configure a pipeline at construction time.
type Options struct {
	Page        layout.PageSpec
	Title       string
	Concurrency int
	// OnProgress, if set, is called after each successful encode with the
	// number of completed encodes and the snapshot size.
	OnProgress func(done, total int)
}

// Status is a point-in-time view of the pipeline for callers that poll.
type Status struct {
	State State  `json:"state"`
	Pages int    `json:"pages"`
	Error string `json:"error,omitempty"`
}

// Pipeline drives generations from registry snapshot to sink. The sink and
// renderer are capabilities injected at startup; the pipeline never
// branches on the target environment.
type Pipeline struct {
	registry *registry.Registry
	encoder  *encode.Encoder
	renderer render.Renderer
	sink     sink.Sink
	opts     Options

	mu      sync.Mutex
	state   State
	lastErr error
	pages   int
}

// New creates an idle pipeline.
func New(reg *registry.Registry, enc *encode.Encoder, r render.Renderer, s sink.Sink, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Page.Width <= 0 || opts.Page.Height <= 0 {
		opts.Page = layout.A4()
	}
	if opts.Title == "" {
		opts.Title = "document"
	}
	return &Pipeline{
		registry: reg,
		encoder:  enc,
		renderer: r,
		sink:     s,
		opts:     opts,
		state:    StateIdle,
	}
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Status returns the current state, the page count of the last successful
// run, and the last failure if any.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := Status{State: p.state, Pages: p.pages}
	if p.lastErr != nil {
		st.Error = p.lastErr.Error()
	}
	return st
}

// begin transitions into Encoding and snapshots the registry, or rejects
// the call. Rejection leaves the current state untouched, so a run refused
// for concurrency never disturbs the in-flight one.
func (p *Pipeline) begin() ([]registry.ImageAsset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case StateIdle, StateDone, StateFailed:
	default:
		return nil, ErrGenerationInProgress
	}
	snapshot := p.registry.Snapshot()
	if len(snapshot) == 0 {
		return nil, ErrEmptyRegistry
	}
	p.state = StateEncoding
	p.lastErr = nil
	p.pages = 0
	return snapshot, nil
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Pipeline) fail(err error) error {
	p.mu.Lock()
	p.state = StateFailed
	p.lastErr = err
	p.mu.Unlock()
	return err
}

// Generate runs one full generation against a snapshot of the registry.
// Any per-image failure aborts the whole run; partial documents are never
// produced. The error identifies the failing image by position and id.
func (p *Pipeline) Generate(ctx context.Context) error {
	snapshot, err := p.begin()
	if err != nil {
		return err
	}

	entries, err := p.encodeAll(ctx, snapshot)
	if err != nil {
		return p.fail(err)
	}

	p.setState(StateComposing)
	doc, err := compose.Compose(entries, p.opts.Page)
	if err != nil {
		return p.fail(err)
	}

	p.setState(StateRendering)
	html, err := doc.HTML()
	if err != nil {
		return p.fail(fmt.Errorf("render: %w", err))
	}
	pdf, err := p.renderer.Render(ctx, html)
	if err != nil {
		return p.fail(fmt.Errorf("render: %w", err))
	}

	// Presentation is best effort; the run succeeded once the backend
	// produced the document.
	if err := p.sink.Present(ctx, sink.Document{Title: p.opts.Title, Data: pdf}); err != nil {
		log.Printf("WARNING: failed to present document: %v", err)
	}

	p.mu.Lock()
	p.state = StateDone
	p.pages = len(doc.Pages)
	p.mu.Unlock()
	return nil
}

// encodeAll fans out per-image encodes across a bounded worker pool and
// joins before returning. Each result is written once into its snapshot
// slot, so completion order is irrelevant. The first failure cancels the
// remaining reads; the failure reported is the first one in list order.
func (p *Pipeline) encodeAll(ctx context.Context, snapshot []registry.ImageAsset) ([]compose.Entry, error) {
	entries := make([]compose.Entry, len(snapshot))
	errs := make([]error, len(snapshot))

	encCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type job struct {
		idx   int
		asset registry.ImageAsset
	}
	jobs := make(chan job, len(snapshot))
	for i, a := range snapshot {
		jobs <- job{idx: i, asset: a}
	}
	close(jobs)

	var done atomic.Int64
	workers := min(p.opts.Concurrency, len(snapshot))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if encCtx.Err() != nil {
					return
				}
				payload, err := p.encoder.Encode(encCtx, j.asset.SourceRef)
				if err != nil {
					// A read aborted by a sibling's cancel is not the
					// failure to report.
					if !errors.Is(err, context.Canceled) {
						errs[j.idx] = &EncodeError{Index: j.idx, ID: j.asset.ID, Err: err}
					}
					cancel()
					return
				}
				entries[j.idx] = compose.Entry{
					Payload: payload,
					Width:   j.asset.Width,
					Height:  j.asset.Height,
				}
				if p.opts.OnProgress != nil {
					p.opts.OnProgress(int(done.Add(1)), len(snapshot))
				}
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
