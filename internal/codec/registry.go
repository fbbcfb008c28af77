package codec

import (
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// MagicSize is the number of header bytes read for format sniffing.
const MagicSize = 64

// Registry maps format tags to coders.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register adds or replaces the entry for e.Tag.
func (r *Registry) Register(e *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.Tag = strings.ToUpper(e.Tag)
	r.entries[e.Tag] = e
}

// Unregister removes the entry for tag.
func (r *Registry) Unregister(tag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, strings.ToUpper(tag))
}

// Lookup returns the entry for tag.
func (r *Registry) Lookup(tag string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[strings.ToUpper(tag)]
	return e, ok
}

// List returns every entry sorted by tag.
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *Entry) int { return strings.Compare(a.Tag, b.Tag) })
	return out
}

// Sniff returns the tag whose magic matches header, or "".
func (r *Registry) Sniff(header []byte) string {
	for _, e := range r.List() {
		if e.Magic != nil && e.Magic(header) {
			return e.Tag
		}
	}
	return ""
}

// ByExtension returns the tag for the extension of filename: the entry
// that lists the extension, or else the upper-cased extension itself so that
// delegates can still pick it up.
func (r *Registry) ByExtension(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return ""
	}
	for _, e := range r.List() {
		if slices.Contains(e.Extensions, ext) {
			return e.Tag
		}
	}
	return strings.ToUpper(ext)
}

// Resolve determines the format of a request: an explicit "TAG:" filename
// prefix, then info.Magick, then the magic bytes of header, then the file
// extension. The tag need not be registered. Resolve returns "" when
// nothing names a format.
func (r *Registry) Resolve(info *ImageInfo, header []byte) string {
	if tag, file := SplitFilename(info.Filename); tag != "" {
		info.Filename, info.Magick, info.Affirm = file, tag, true
		return tag
	}
	if info.Magick != "" {
		info.Magick = strings.ToUpper(info.Magick)
		return info.Magick
	}
	if len(header) > 0 {
		if tag := r.Sniff(header); tag != "" {
			return tag
		}
	}
	return r.ByExtension(info.Filename)
}
