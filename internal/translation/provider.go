package translation

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// A Harvester collects the translatable strings of the compiled files.
type Harvester struct {
	excludeValues bool
	files         map[string]*File
	order         []string
}

func NewHarvester(excludeValues bool) *Harvester {
	return &Harvester{
		excludeValues: excludeValues,
		files:         map[string]*File{},
	}
}

// AddFile should be called before the file is compiled.
func (h *Harvester) AddFile(file, hash string) {
	if _, ok := h.files[file]; !ok {
		h.order = append(h.order, file)
	}
	h.files[file] = NewFile(hash, h.excludeValues)
}

func (h *Harvester) File(file string) (*File, bool) {
	f, ok := h.files[file]
	return f, ok
}

// Files returns the harvested files in compilation order.
func (h *Harvester) Files() []string {
	return append([]string(nil), h.order...)
}

func (h *Harvester) file(name string) *File {
	f, ok := h.files[name]
	if !ok {
		h.AddFile(name, "")
		f = h.files[name]
	}
	return f
}

func (h *Harvester) OpenScope(file, key string) {
	h.file(file).AddKey(key)
}

func (h *Harvester) Translate(file, key, text string) (string, error) {
	h.file(file).Add(key, text)
	return text, nil
}

func (h *Harvester) CloseScope(file, key string) error {
	return nil
}

func (h *Harvester) TranslatesValues(file string) bool {
	return !h.excludeValues
}

// An Applier replaces the translatable strings of the compiled files with the strings of
// translation files. Files without translation file are left untouched.
type Applier struct {
	files map[string]*appliedFile
}

type appliedFile struct {
	excludeValues bool
	queues        map[string][]string
}

func NewApplier() *Applier {
	return &Applier{files: map[string]*appliedFile{}}
}

// AddFile sets the translation file of a source file.
func (a *Applier) AddFile(file string, f *File) {
	applied := &appliedFile{
		excludeValues: f.ExcludeValues,
		queues:        map[string][]string{},
	}
	for _, key := range f.keys {
		applied.queues[key] = append([]string{}, f.strings[key]...)
	}
	a.files[file] = applied
}

func (a *Applier) OpenScope(file, key string) {}

func (a *Applier) Translate(file, key, text string) (string, error) {
	f, ok := a.files[file]
	if !ok {
		return text, nil
	}
	queue, ok := f.queues[key]
	if !ok {
		return text, nil
	}
	if len(queue) == 0 {
		return "", countMismatch(key)
	}
	f.queues[key] = queue[1:]
	return queue[0], nil
}

func (a *Applier) CloseScope(file, key string) error {
	f, ok := a.files[file]
	if !ok {
		return nil
	}
	if len(f.queues[key]) != 0 {
		return countMismatch(key)
	}
	return nil
}

func (a *Applier) TranslatesValues(file string) bool {
	f, ok := a.files[file]
	return ok && !f.excludeValues
}

// Leftovers returns the keys of a file that still have untranslated strings, sorted.
func (a *Applier) Leftovers(file string) []string {
	f, ok := a.files[file]
	if !ok {
		return nil
	}
	keys := slices.DeleteFunc(maps.Keys(f.queues), func(key string) bool {
		return len(f.queues[key]) == 0
	})
	slices.Sort(keys)
	return keys
}

func countMismatch(key string) error {
	return fmt.Errorf("%w\nItem identifier: %s", ErrStringCountMismatch, key)
}
