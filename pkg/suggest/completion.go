// Package suggest completes place names. It indexes the distinct folded names of a
// catalog in a patricia trie and returns the names under a prefix, most frequent first.
package suggest

import (
	"cmp"
	"slices"
	"sync"

	"github.com/bastiangx/placeserve/pkg/catalog"
	"github.com/bastiangx/placeserve/pkg/place"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Suggestion is one distinct name under a prefix.
type Suggestion struct {
	Name  string `msgpack:"n" json:"name"`
	Count int    `msgpack:"c" json:"count"`
}

// entry is the trie item: the first spelling seen for a folded name and how many
// records carry it.
type entry struct {
	display string
	count   int
}

// Completer answers name completions for one catalog. Rebuild swaps the trie for a
// new catalog; Complete may run concurrently with it.
type Completer struct {
	mu       sync.RWMutex
	trie     *patricia.Trie
	names    int
	maxCount int
	version  uint64
	minCount int
	keepCase bool
}

// Option configures a Completer.
type Option func(*Completer)

// WithMinCount hides names carried by fewer than n records.
func WithMinCount(n int) Option {
	return func(c *Completer) {
		c.minCount = n
	}
}

// WithOriginalCase returns names as first spelled in the catalog instead of folded.
func WithOriginalCase() Option {
	return func(c *Completer) {
		c.keepCase = true
	}
}

func NewCompleter(opts ...Option) *Completer {
	c := &Completer{trie: patricia.NewTrie()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rebuild indexes the names of cat, replacing the previous index.
func (c *Completer) Rebuild(cat *catalog.Catalog) {
	trie := patricia.NewTrie()
	names, maxCount := 0, 0

	for i := 0; i < cat.Size(); i++ {
		name := cat.At(i).Name
		if name == "" {
			continue
		}
		key := patricia.Prefix(place.Fold(name))
		if item := trie.Get(key); item != nil {
			e := item.(*entry)
			e.count++
			maxCount = max(maxCount, e.count)
			continue
		}
		trie.Insert(key, &entry{display: name, count: 1})
		names++
		maxCount = max(maxCount, 1)
	}

	c.mu.Lock()
	c.trie = trie
	c.names = names
	c.maxCount = maxCount
	c.version = cat.Version()
	c.mu.Unlock()

	log.Debugf("Indexed %d distinct names from catalog v%d", names, cat.Version())
}

// Complete returns the distinct names under prefix ordered by count, then name. limit
// caps the result when positive.
func (c *Completer) Complete(prefix string, limit int) []Suggestion {
	c.mu.RLock()
	trie := c.trie
	c.mu.RUnlock()

	suggestions := []Suggestion{}
	err := trie.VisitSubtree(patricia.Prefix(place.Fold(prefix)), func(p patricia.Prefix, item patricia.Item) error {
		e, ok := item.(*entry)
		if !ok {
			log.Errorf("Unknown item type: %T for name %s", item, p)
			return nil
		}
		if e.count < c.minCount {
			return nil
		}
		name := string(p)
		if c.keepCase {
			name = e.display
		}
		suggestions = append(suggestions, Suggestion{Name: name, Count: e.count})
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting trie subtree: %v", err)
		return []Suggestion{}
	}

	slices.SortFunc(suggestions, func(a, b Suggestion) int {
		if a.Count != b.Count {
			return cmp.Compare(b.Count, a.Count)
		}
		return cmp.Compare(a.Name, b.Name)
	})

	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

func (c *Completer) Stats() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return map[string]int{
		"distinctNames": c.names,
		"maxCount":      c.maxCount,
		"version":       int(c.version),
	}
}
