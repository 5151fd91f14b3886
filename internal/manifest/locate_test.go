package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/streamgrab/internal/jsonvalue"
)

func locateJSON(t *testing.T, doc string) Result {
	t.Helper()
	v, err := jsonvalue.Parse([]byte(doc))
	require.NoError(t, err)
	return Locate(v)
}

func TestLocateNestedPreferredField(t *testing.T) {
	res := locateJSON(t, `{"referrer": "https://r.example", "nested": {"shakahls": "https://cdn/x.m3u8?tok=1"}}`)
	assert.Equal(t, Result{Referrer: "https://r.example", ManifestURL: "https://cdn/x.m3u8"}, res)
	assert.True(t, res.Found())
}

func TestLocateNothingFound(t *testing.T) {
	res := locateJSON(t, `{"referrer": "https://r.example", "video": {"mp4": "https://cdn/x.mp4", "n": 3, "ok": true, "x": null}}`)
	assert.False(t, res.Found())
	assert.Empty(t, res.ManifestURL)
	assert.Equal(t, "https://r.example", res.Referrer)
}

func TestLocatePreferredBeatsLaterSubstring(t *testing.T) {
	res := locateJSON(t, `{"shakahls": "https://cdn/preferred.m3u8", "other": "https://cdn/other.m3u8"}`)
	assert.Equal(t, "https://cdn/preferred.m3u8", res.ManifestURL)
}

func TestLocateEarlierSubstringBeatsDeeperPreferred(t *testing.T) {
	res := locateJSON(t, `{"hls": "https://cdn/first.m3u8", "deep": {"shakahls": "https://cdn/second.m3u8"}}`)
	assert.Equal(t, "https://cdn/first.m3u8", res.ManifestURL)
}

func TestLocateDocumentOrderWins(t *testing.T) {
	res := locateJSON(t, `{"b": {"u": "https://cdn/b.m3u8"}, "a": "https://cdn/a.m3u8"}`)
	assert.Equal(t, "https://cdn/b.m3u8", res.ManifestURL)
}

func TestLocatePreferredWithoutMarkerIsKept(t *testing.T) {
	res := locateJSON(t, `{"shakahls": "https://cdn/master?sig=1"}`)
	assert.Equal(t, "https://cdn/master?sig=1", res.ManifestURL)
}

func TestLocateEmptyPreferredIsSkipped(t *testing.T) {
	res := locateJSON(t, `{"shakahls": "", "x": ["https://cdn/y.m3u8"]}`)
	assert.Equal(t, "https://cdn/y.m3u8", res.ManifestURL)
}

func TestLocateNonStringPreferredIsSkipped(t *testing.T) {
	res := locateJSON(t, `{"shakahls": {"url": "https://cdn/z.m3u8/index?x"}}`)
	assert.Equal(t, "https://cdn/z.m3u8", res.ManifestURL)
}

func TestLocateArrays(t *testing.T) {
	res := locateJSON(t, `{"sources": [1, "plain", [{"src": "https://cdn/a/b.m3u8#t"}], "https://cdn/late.m3u8"]}`)
	assert.Equal(t, "https://cdn/a/b.m3u8", res.ManifestURL)
}

func TestLocateTopLevelArray(t *testing.T) {
	res := locateJSON(t, `[{"referrer": "https://ignored"}, "https://cdn/top.m3u8"]`)
	assert.Equal(t, "https://cdn/top.m3u8", res.ManifestURL)
	assert.Empty(t, res.Referrer, "referrer is only read from a top-level object")
}

func TestLocateReferrerIsShallow(t *testing.T) {
	res := locateJSON(t, `{"player": {"referrer": "https://deep"}, "referrer": 42}`)
	assert.Empty(t, res.Referrer)
}

func TestLocateReferrerDuplicateKey(t *testing.T) {
	res := locateJSON(t, `{"referrer": "https://old", "hls": "a.m3u8", "referrer": "https://new"}`)
	assert.Equal(t, "https://new", res.Referrer)
	assert.Equal(t, "a.m3u8", res.ManifestURL)
}

func TestLocateScalars(t *testing.T) {
	for _, doc := range []string{`null`, `true`, `1`, `"https://cdn/a.m3u8"`} {
		res := locateJSON(t, doc)
		assert.False(t, res.Found(), doc)
	}
}

func TestLocateDoesNotMutateInput(t *testing.T) {
	v, err := jsonvalue.Parse([]byte(`{"shakahls": "https://cdn/x.m3u8?tok=1"}`))
	require.NoError(t, err)
	Locate(v)
	assert.Equal(t, "https://cdn/x.m3u8?tok=1", v.Members[0].Value.Str)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "https://cdn/x.m3u8", Truncate("https://cdn/x.m3u8?tok=1"))
	assert.Equal(t, "https://cdn/x.m3u8", Truncate("https://cdn/x.m3u8/extra.m3u8"))
	assert.Equal(t, "https://cdn/x", Truncate("https://cdn/x"))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "lesson.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"referrer":"https://r","shakahls":"https://cdn/m.m3u8"}`), 0o644))

	v, err := LoadFile(good)
	require.NoError(t, err)
	assert.Equal(t, Result{ManifestURL: "https://cdn/m.m3u8", Referrer: "https://r"}, Locate(v))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"referrer":`), 0o644))
	_, err = LoadFile(bad)
	assert.ErrorIs(t, err, jsonvalue.ErrInvalidJSON)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSuggestName(t *testing.T) {
	assert.Equal(t, "lesson-03", SuggestName("/home/u/exports/lesson-03.json"))
	assert.Equal(t, "player.data", SuggestName("player.data.json"))
	assert.Equal(t, "noext", SuggestName("noext"))
}
