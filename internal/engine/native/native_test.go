package native

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ytget/ytdlp/v2"

	"github.com/ytget/streamgrab/internal/engine"
)

func TestSelector(t *testing.T) {
	tests := []struct {
		query    string
		selector string
		ext      string
	}{
		{"bestvideo[height<=720][vcodec*=avc]+bestaudio/best[height<=720]/bestvideo[height<=720]+bestaudio/best", "height<=720", ExtVideo},
		{"bestvideo[vcodec*=av01]+bestaudio/bestvideo+bestaudio/best", SelectorBest, ExtVideo},
		{"bestaudio/best", SelectorBest, ExtAudio},
		{"best", SelectorBest, ExtVideo},
		{"", SelectorBest, ExtVideo},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			sel, ext := Selector(tt.query)
			assert.Equal(t, tt.selector, sel)
			assert.Equal(t, tt.ext, ext)
		})
	}
}

func TestExtForURL(t *testing.T) {
	formats := []ytdlp.Format{
		{Itag: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`},
		{Itag: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`},
		{Itag: 251, MimeType: `audio/webm; codecs="opus"`},
	}
	assert.Equal(t, "m4a", ExtForURL(formats, "https://rr.example/videoplayback?itag=140&mime=audio"))
	assert.Equal(t, "webm", ExtForURL(formats, "https://rr.example/videoplayback?x=1&itag=251"))
	assert.Equal(t, "mp4", ExtForURL(formats, "https://rr.example/videoplayback?itag=18&n=abc"))
	assert.Equal(t, "", ExtForURL(formats, "https://rr.example/videoplayback?itag=1400&x=1"))
}

func TestExtFromMime(t *testing.T) {
	assert.Equal(t, "mp4", ExtFromMime(""))
	assert.Equal(t, "mp4", ExtFromMime("video/mp4"))
	assert.Equal(t, "m4a", ExtFromMime("audio/mp4; codecs=x"))
	assert.Equal(t, "3gpp", ExtFromMime("video/3gpp"))
}

func TestRender(t *testing.T) {
	got := Render("/tmp/out/%(title)s.%(ext)s", `Live: "A/B" test?`, "mp4")
	assert.Equal(t, "/tmp/out/Live_ _A_B_ test_.mp4", got)

	assert.Equal(t, "/tmp/custom.m4a", Render("/tmp/custom.%(ext)s", "ignored", "m4a"))
	assert.Equal(t, "video", SanitizeTitle("  ..  "))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{errors.New("no suitable format found"), engine.ErrFormatUnavailable},
		{errors.New("extract video id failed: invalid youtube url"), engine.ErrExtraction},
		{errors.New("video is private"), engine.ErrExtraction},
		{errors.New("download failed: unexpected status 403"), engine.ErrDownload},
		{errors.New("connection reset by peer"), engine.ErrDownload},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.ErrorIs(t, Classify(tt.err), tt.want)
		})
	}
}

func TestMP3Rejected(t *testing.T) {
	e := NewFactory()(engine.Options{
		Format: "bestaudio/best",
		PostProcessors: []engine.PostProcessor{{
			Kind:          engine.PostProcessorExtractAudio,
			TargetCodec:   "mp3",
			TargetQuality: "192",
		}},
	})
	info, err := e.ExtractInfo(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	assert.Nil(t, info)
	assert.ErrorIs(t, err, engine.ErrFormatUnavailable)
}

func TestCheckTranscode(t *testing.T) {
	mp3 := []engine.PostProcessor{{Kind: engine.PostProcessorExtractAudio, TargetCodec: "mp3", TargetQuality: "192"}}
	m4a := []engine.PostProcessor{{Kind: engine.PostProcessorExtractAudio, TargetCodec: "m4a", TargetQuality: "192"}}

	tests := []struct {
		name    string
		opts    engine.Options
		wantErr bool
	}{
		{"no post-processing", engine.Options{Format: "bestvideo+bestaudio/best"}, false},
		{"m4a primary", engine.Options{Format: "bestaudio/best", PostProcessors: m4a}, false},
		{"mp3 primary", engine.Options{Format: "bestaudio/best", PostProcessors: mp3}, true},
		{"mp3 fallback", engine.Options{Format: "best", PostProcessors: mp3}, false},
		{"mp3 fallback upper case", engine.Options{Format: " BEST ", PostProcessors: mp3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTranscode(tt.opts)
			if tt.wantErr {
				assert.ErrorIs(t, err, engine.ErrFormatUnavailable)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHeaderTransport(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	e := &Engine{opts: engine.Options{HTTPHeaders: map[string]string{
		engine.HeaderReferer:   "https://ref.example/",
		engine.HeaderUserAgent: engine.DesktopUserAgent,
	}}}
	resp, err := e.httpClient().Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "https://ref.example/", got.Get("Referer"))
	assert.Equal(t, engine.DesktopUserAgent, got.Get("User-Agent"))
}
