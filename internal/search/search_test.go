package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashtoggle/flashtoggle/internal/platform"
	"github.com/flashtoggle/flashtoggle/internal/window"
)

func rec(h platform.Handle, title, tags string) window.Record {
	return window.Record{Handle: h, Title: title, Tags: tags}
}

func handles(results []Result) []platform.Handle {
	out := make([]platform.Handle, len(results))
	for i, r := range results {
		out[i] = r.Handle
	}
	return out
}

func TestSearchEmptyQuery(t *testing.T) {
	e := NewEngine()
	records := []window.Record{rec(1, "Chrome", "")}

	assert.Empty(t, e.Search(records, nil))
	assert.Empty(t, e.Search(records, []string{"", "  "}))
	assert.NotNil(t, e.Search(records, nil))
}

func TestSearchMatchCount(t *testing.T) {
	e := NewEngine()
	records := []window.Record{
		rec(1, "Project Plan - Word", "work"),
		rec(2, "Inbox - Outlook", "work mail"),
		rec(3, "YouTube - Chrome", ""),
	}

	got := e.Search(records, []string{"WORK", "mail"})
	require.Len(t, got, 2)
	assert.Equal(t, []platform.Handle{1, 2}, handles(got), "results keep index order")
	assert.Equal(t, 1, got[0].MatchCount)
	assert.Equal(t, 2, got[1].MatchCount)
}

func TestSearchKeywordCountsOncePerCandidateSet(t *testing.T) {
	e := NewEngine()
	records := []window.Record{rec(1, "notes", "notes")}

	got := e.Search(records, []string{"notes"})
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].MatchCount)
}

func TestSearchMonotonicity(t *testing.T) {
	e := NewEngine()
	records := []window.Record{
		rec(1, "Terminal - build", "dev"),
		rec(2, "Music", ""),
	}

	base := e.Search(records, []string{"build"})
	more := e.Search(records, []string{"build", "zzz"})

	counts := func(rs []Result) map[platform.Handle]int {
		m := map[platform.Handle]int{}
		for _, r := range rs {
			m[r.Handle] = r.MatchCount
		}
		return m
	}
	for h, n := range counts(base) {
		assert.GreaterOrEqual(t, counts(more)[h], n)
	}
}

func TestSearchPinyin(t *testing.T) {
	e := NewEngine()
	records := []window.Record{
		rec(1, "微信", ""),
		rec(2, "Editor", "工作"),
		rec(3, "Editor", ""),
	}

	got := e.Search(records, []string{"weixin"})
	assert.Equal(t, []platform.Handle{1}, handles(got))

	got = e.Search(records, []string{"gongzuo"})
	assert.Equal(t, []platform.Handle{2}, handles(got))

	got = e.Search(records, []string{"微"})
	assert.Equal(t, []platform.Handle{1}, handles(got))
}

func TestPinyinKeepsNonHan(t *testing.T) {
	e := NewEngine()
	assert.Equal(t, "readme - jishiben", e.Pinyin("README - 记事本"))
	assert.Equal(t, "plain", e.Pinyin("Plain"))
}

func TestRank(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	results := []Result{
		{Record: window.Record{Handle: 1}, MatchCount: 1},
		{Record: window.Record{Handle: 2, LastActive: now}, MatchCount: 1},
		{Record: window.Record{Handle: 3}, MatchCount: 2},
		{Record: window.Record{Handle: 4, LastActive: now.Add(time.Minute)}, MatchCount: 1},
	}

	Rank(results)
	assert.Equal(t, []platform.Handle{3, 4, 2, 1}, handles(results))
}

func TestParseQuery(t *testing.T) {
	assert.Equal(t, []string{"foo", "bar"}, ParseQuery("  foo \t bar "))
	assert.Empty(t, ParseQuery("   "))
}
