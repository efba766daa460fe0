package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/picpress/picpress/internal/encode"
	"github.com/picpress/picpress/internal/layout"
	"github.com/picpress/picpress/internal/registry"
	"github.com/picpress/picpress/internal/sink"
)

// fakeReader serves byte slices from a map and fails for absent locators.
type fakeReader struct {
	files map[string][]byte
}

func (f fakeReader) Read(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := f.files[locator]
	if !ok {
		return nil, fmt.Errorf("reading %s: no such file", locator)
	}
	return data, nil
}

// fakeRenderer records the markup it was given and returns canned bytes.
type fakeRenderer struct {
	mu    sync.Mutex
	html  string
	calls int
	err   error
	block chan struct{} // if set, Render waits until the channel closes
}

func (f *fakeRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	f.mu.Lock()
	f.html = html
	f.calls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-fake"), nil
}

func (f *fakeRenderer) renderedHTML() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.html
}

func (f *fakeRenderer) renderCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeSink captures presented documents.
type fakeSink struct {
	mu   sync.Mutex
	docs []sink.Document
	err  error
}

func (f *fakeSink) Present(ctx context.Context, doc sink.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakeSink) presented() []sink.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs
}

func testAssets(n int) ([]registry.ImageAsset, map[string][]byte) {
	assets := make([]registry.ImageAsset, n)
	files := make(map[string][]byte, n)
	for i := 0; i < n; i++ {
		ref := fmt.Sprintf("img-%d.jpg", i)
		assets[i] = registry.ImageAsset{
			ID:        fmt.Sprintf("id-%d", i),
			SourceRef: ref,
			Width:     800,
			Height:    600,
		}
		files[ref] = []byte(fmt.Sprintf("bytes-%d", i))
	}
	return assets, files
}

func newTestPipeline(assets []registry.ImageAsset, files map[string][]byte, r *fakeRenderer, s *fakeSink, opts Options) (*Pipeline, *registry.Registry) {
	reg := registry.New()
	reg.Append(assets...)
	enc := encode.NewEncoder(fakeReader{files: files})
	return New(reg, enc, r, s, opts), reg
}

func TestGenerateSuccess(t *testing.T) {
	assets, files := testAssets(3)
	renderer := &fakeRenderer{}
	out := &fakeSink{}
	p, _ := newTestPipeline(assets, files, renderer, out, Options{Title: "holiday"})

	if err := p.Generate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := p.State(); got != StateDone {
		t.Errorf("expected state %s, got %s", StateDone, got)
	}
	if st := p.Status(); st.Pages != 3 || st.Error != "" {
		t.Errorf("unexpected status: %+v", st)
	}
	docs := out.presented()
	if len(docs) != 1 {
		t.Fatalf("expected 1 presented document, got %d", len(docs))
	}
	if docs[0].Title != "holiday" || string(docs[0].Data) != "%PDF-fake" {
		t.Errorf("unexpected document: %+v", docs[0])
	}
}

func TestGenerateEmptyRegistry(t *testing.T) {
	renderer := &fakeRenderer{}
	p, _ := newTestPipeline(nil, nil, renderer, &fakeSink{}, Options{})

	err := p.Generate(context.Background())
	if !errors.Is(err, ErrEmptyRegistry) {
		t.Fatalf("expected ErrEmptyRegistry, got %v", err)
	}
	// Rejected before the run starts: not a pipeline failure.
	if got := p.State(); got != StateIdle {
		t.Errorf("expected state %s, got %s", StateIdle, got)
	}
	if renderer.renderCalls() != 0 {
		t.Error("renderer must not be invoked for an empty registry")
	}
}

func TestGenerateEncodeFailure(t *testing.T) {
	assets, files := testAssets(3)
	delete(files, "img-1.jpg")
	renderer := &fakeRenderer{}
	p, _ := newTestPipeline(assets, files, renderer, &fakeSink{}, Options{})

	err := p.Generate(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var encErr *EncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected EncodeError, got %v", err)
	}
	if encErr.Index != 1 || encErr.ID != "id-1" {
		t.Errorf("expected failure at index 1 (id-1), got index %d (%s)", encErr.Index, encErr.ID)
	}
	if got := p.State(); got != StateFailed {
		t.Errorf("expected state %s, got %s", StateFailed, got)
	}
	if renderer.renderCalls() != 0 {
		t.Error("no partial document: renderer must not run after an encode failure")
	}
	if st := p.Status(); st.Error == "" || !strings.Contains(st.Error, "id-1") {
		t.Errorf("expected status error naming the failing image, got %q", st.Error)
	}
}

func TestGenerateDegenerateDimensions(t *testing.T) {
	assets, files := testAssets(2)
	assets[1].Height = 0
	renderer := &fakeRenderer{}
	p, _ := newTestPipeline(assets, files, renderer, &fakeSink{}, Options{})

	err := p.Generate(context.Background())
	if !errors.Is(err, layout.ErrInvalidDimensions) {
		t.Fatalf("expected ErrInvalidDimensions, got %v", err)
	}
	if got := p.State(); got != StateFailed {
		t.Errorf("expected state %s, got %s", StateFailed, got)
	}
	if renderer.renderCalls() != 0 {
		t.Error("pipeline must fail before Rendering on degenerate dimensions")
	}
}

func TestGenerateRenderFailure(t *testing.T) {
	assets, files := testAssets(1)
	renderer := &fakeRenderer{err: errors.New("backend exploded")}
	out := &fakeSink{}
	p, _ := newTestPipeline(assets, files, renderer, out, Options{})

	err := p.Generate(context.Background())
	if err == nil || !strings.Contains(err.Error(), "backend exploded") {
		t.Fatalf("expected backend error, got %v", err)
	}
	if got := p.State(); got != StateFailed {
		t.Errorf("expected state %s, got %s", StateFailed, got)
	}
	if len(out.presented()) != 0 {
		t.Error("sink must not receive a document after a render failure")
	}
}

func TestGenerateSinkFailureIsBestEffort(t *testing.T) {
	assets, files := testAssets(1)
	renderer := &fakeRenderer{}
	out := &fakeSink{err: errors.New("share sheet dismissed")}
	p, _ := newTestPipeline(assets, files, renderer, out, Options{})

	if err := p.Generate(context.Background()); err != nil {
		t.Fatalf("presentation failure must not fail the run: %v", err)
	}
	if got := p.State(); got != StateDone {
		t.Errorf("expected state %s, got %s", StateDone, got)
	}
}

func TestConcurrentGenerationRejected(t *testing.T) {
	assets, files := testAssets(2)
	block := make(chan struct{})
	renderer := &fakeRenderer{block: block}
	out := &fakeSink{}
	p, _ := newTestPipeline(assets, files, renderer, out, Options{})

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- p.Generate(context.Background())
	}()

	// Wait for the first run to reach Rendering.
	deadline := time.After(5 * time.Second)
	for p.State() != StateRendering {
		select {
		case <-deadline:
			t.Fatal("first run never reached Rendering")
		case <-time.After(time.Millisecond):
		}
	}

	if err := p.Generate(context.Background()); !errors.Is(err, ErrGenerationInProgress) {
		t.Fatalf("expected ErrGenerationInProgress, got %v", err)
	}

	// The rejected call must not disturb the in-flight run.
	close(block)
	if err := <-firstDone; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if got := p.State(); got != StateDone {
		t.Errorf("expected state %s, got %s", StateDone, got)
	}
	if len(out.presented()) != 1 {
		t.Errorf("expected 1 presented document, got %d", len(out.presented()))
	}
}

func TestGenerateAfterDoneAndFailed(t *testing.T) {
	assets, files := testAssets(1)
	renderer := &fakeRenderer{}
	p, _ := newTestPipeline(assets, files, renderer, &fakeSink{}, Options{})

	if err := p.Generate(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := p.Generate(context.Background()); err != nil {
		t.Fatalf("run after Done: %v", err)
	}

	renderer.err = errors.New("boom")
	if err := p.Generate(context.Background()); err == nil {
		t.Fatal("expected render failure")
	}
	renderer.err = nil
	if err := p.Generate(context.Background()); err != nil {
		t.Fatalf("run after Failed: %v", err)
	}
}

func TestOrderPreservedAfterReorder(t *testing.T) {
	assets, files := testAssets(3)
	renderer := &fakeRenderer{}
	p, reg := newTestPipeline(assets, files, renderer, &fakeSink{}, Options{})

	// New order: id-1, id-0, id-2.
	reg.MoveUp(1)

	if err := p.Generate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	html := renderer.renderedHTML()
	// base64("bytes-N") markers appear in page order.
	positions := make([]int, 3)
	for i, want := range []string{"Ynl0ZXMtMQ==", "Ynl0ZXMtMA==", "Ynl0ZXMtMg=="} {
		positions[i] = strings.Index(html, want)
		if positions[i] < 0 {
			t.Fatalf("payload %d missing from markup", i)
		}
	}
	if !(positions[0] < positions[1] && positions[1] < positions[2]) {
		t.Errorf("pages out of order: %v", positions)
	}
}

func TestEncodeProgress(t *testing.T) {
	assets, files := testAssets(5)
	renderer := &fakeRenderer{}
	var mu sync.Mutex
	var reports []int
	p, _ := newTestPipeline(assets, files, renderer, &fakeSink{}, Options{
		Concurrency: 2,
		OnProgress: func(done, total int) {
			mu.Lock()
			reports = append(reports, done)
			mu.Unlock()
		},
	})

	if err := p.Generate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(reports) != 5 {
		t.Fatalf("expected 5 progress reports, got %d", len(reports))
	}
	seen := make(map[int]bool)
	for _, d := range reports {
		if d < 1 || d > 5 {
			t.Errorf("progress report out of range: %d", d)
		}
		seen[d] = true
	}
	if len(seen) != 5 {
		t.Errorf("expected distinct progress counts 1..5, got %v", reports)
	}
}

func TestSnapshotIsolatesInFlightRun(t *testing.T) {
	assets, files := testAssets(2)
	block := make(chan struct{})
	renderer := &fakeRenderer{block: block}
	p, reg := newTestPipeline(assets, files, renderer, &fakeSink{}, Options{})

	done := make(chan error, 1)
	go func() { done <- p.Generate(context.Background()) }()

	deadline := time.After(5 * time.Second)
	for p.State() != StateRendering {
		select {
		case <-deadline:
			t.Fatal("run never reached Rendering")
		case <-time.After(time.Millisecond):
		}
	}

	// Mutating the registry mid-run must not corrupt the document.
	reg.Remove("id-0")
	close(block)
	if err := <-done; err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if st := p.Status(); st.Pages != 2 {
		t.Errorf("expected the snapshot's 2 pages, got %d", st.Pages)
	}
}
