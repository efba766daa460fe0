// Package registry holds the ordered collection of images selected for a
// document. Insertion order defines page order.
package registry

import (
	"sync"

	"github.com/google/uuid"
)

// ImageAsset is one selected image with its intrinsic pixel dimensions.
// Assets are immutable once created; reordering moves whole entries.
type ImageAsset struct {
	ID        string `json:"id"`
	SourceRef string `json:"source_ref"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// NewAssetID returns an opaque stable identifier for a new asset.
func NewAssetID() string {
	return uuid.NewString()
}

// Registry is the session-owned ordered image list. All methods are safe
// for concurrent use; Snapshot returns a copy that later mutations never
// touch.
type Registry struct {
	mu     sync.RWMutex
	assets []ImageAsset
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{}
}

// Append adds assets to the end of the list, preserving the relative order
// of the batch. Entries without an identifier are dropped; no other
// validation and no dedup happens here.
func (r *Registry) Append(assets ...ImageAsset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range assets {
		if a.ID == "" {
			continue
		}
		r.assets = append(r.assets, a)
	}
}

// Remove deletes the entry with the given id. Unknown ids are a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.assets {
		if a.ID == id {
			r.assets = append(r.assets[:i], r.assets[i+1:]...)
			return
		}
	}
}

// MoveUp exchanges the entry at index with its predecessor. Calls at the
// top boundary or with an out-of-range index are no-ops, not errors.
func (r *Registry) MoveUp(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index <= 0 || index >= len(r.assets) {
		return
	}
	r.assets[index-1], r.assets[index] = r.assets[index], r.assets[index-1]
}

// MoveDown exchanges the entry at index with its successor. Calls at the
// bottom boundary or with an out-of-range index are no-ops, not errors.
func (r *Registry) MoveDown(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.assets)-1 {
		return
	}
	r.assets[index], r.assets[index+1] = r.assets[index+1], r.assets[index]
}

// IndexOf returns the position of the asset with the given id, or -1.
func (r *Registry) IndexOf(id string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, a := range r.assets {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// Len returns the number of assets in the list.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.assets)
}

// Snapshot returns an immutable copy of the current list. A generation run
// operates only on its snapshot, so registry mutations made while the run
// is in flight never corrupt the document.
func (r *Registry) Snapshot() []ImageAsset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ImageAsset, len(r.assets))
	copy(out, r.assets)
	return out
}
