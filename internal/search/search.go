// Package search scores indexed windows against keyword queries.
package search

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/mozillazg/go-pinyin"

	"github.com/flashtoggle/flashtoggle/internal/window"
)

const pinyinCacheLimit = 4096

// Result pairs a record with the number of keywords it matched.
type Result struct {
	window.Record
	MatchCount int `json:"match_count"`
}

// Engine matches keywords against titles and tags, both literally and via
// their toneless pinyin transliteration.
type Engine struct {
	mu    sync.Mutex
	cache map[string]string
	args  pinyin.Args
}

// NewEngine returns an engine with an empty transliteration cache.
func NewEngine() *Engine {
	args := pinyin.NewArgs()
	args.Style = pinyin.Normal
	args.Fallback = func(r rune, _ pinyin.Args) []string {
		return []string{string(r)}
	}
	return &Engine{
		cache: make(map[string]string),
		args:  args,
	}
}

// ParseQuery splits a raw query into keywords on whitespace.
func ParseQuery(query string) []string {
	return strings.Fields(query)
}

// Search returns every record matching at least one keyword, in input order.
// An empty keyword list yields an empty result.
func (e *Engine) Search(records []window.Record, keywords []string) []Result {
	needles := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			needles = append(needles, kw)
		}
	}
	if len(needles) == 0 {
		return []Result{}
	}

	results := make([]Result, 0)
	for _, rec := range records {
		if n := e.matchCount(rec, needles); n > 0 {
			results = append(results, Result{Record: rec, MatchCount: n})
		}
	}
	return results
}

func (e *Engine) matchCount(rec window.Record, needles []string) int {
	title := strings.ToLower(rec.Title)
	tags := strings.ToLower(rec.Tags)
	candidates := [4]string{title, tags, e.Pinyin(title), e.Pinyin(tags)}

	count := 0
	for _, needle := range needles {
		for _, c := range candidates {
			if c != "" && strings.Contains(c, needle) {
				count++
				break
			}
		}
	}
	return count
}

// Pinyin transliterates Han characters to lower-case toneless pinyin joined
// without separators. Other runes pass through unchanged.
func (e *Engine) Pinyin(s string) string {
	if !hasHan(s) {
		return strings.ToLower(s)
	}

	e.mu.Lock()
	if v, ok := e.cache[s]; ok {
		e.mu.Unlock()
		return v
	}
	e.mu.Unlock()

	v := strings.ToLower(strings.Join(pinyin.LazyPinyin(s, e.args), ""))

	e.mu.Lock()
	if len(e.cache) >= pinyinCacheLimit {
		e.cache = make(map[string]string)
	}
	e.cache[s] = v
	e.mu.Unlock()
	return v
}

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// Rank orders results by match count, then by most recent activation.
// Handles break remaining ties so the order is deterministic.
func Rank(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.MatchCount != b.MatchCount {
			return a.MatchCount > b.MatchCount
		}
		if !a.LastActive.Equal(b.LastActive) {
			return a.LastActive.After(b.LastActive)
		}
		return a.Handle < b.Handle
	})
}
