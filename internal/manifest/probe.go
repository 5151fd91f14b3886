package manifest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/grafov/m3u8"

	"github.com/ytget/streamgrab/internal/engine"
)

// DefaultProbeTimeout bounds a probe when the client has no timeout
const DefaultProbeTimeout = 30 * time.Second

// ErrUnsupportedPlaylist is returned for content that is not an HLS playlist
var ErrUnsupportedPlaylist = errors.New("unsupported playlist")

// Variant is one rendition advertised by a master playlist
type Variant struct {
	URI        string
	Bandwidth  uint32
	Resolution string
	Codecs     string
}

// ProbeResult summarizes a fetched HLS playlist
type ProbeResult struct {
	Master         bool
	Variants       []Variant // master playlists, highest bandwidth first
	Segments       uint      // media playlists
	TargetDuration float64   // media playlists, seconds
}

// Probe fetches an HLS playlist, sending the referrer the way the engine
// would, and lists its variants or segments
func Probe(ctx context.Context, client *http.Client, url, referrer string) (*ProbeResult, error) {
	if client == nil {
		client = &http.Client{Timeout: DefaultProbeTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if referrer != "" {
		req.Header.Set(engine.HeaderReferer, referrer)
		req.Header.Set(engine.HeaderUserAgent, engine.DesktopUserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch playlist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch playlist: unexpected status %s", resp.Status)
	}

	playlist, listType, err := m3u8.DecodeFrom(resp.Body, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedPlaylist, err)
	}

	switch listType {
	case m3u8.MASTER:
		master := playlist.(*m3u8.MasterPlaylist)
		res := &ProbeResult{Master: true}
		for _, v := range master.Variants {
			if v == nil {
				continue
			}
			res.Variants = append(res.Variants, Variant{
				URI:        v.URI,
				Bandwidth:  v.Bandwidth,
				Resolution: v.Resolution,
				Codecs:     v.Codecs,
			})
		}
		sort.SliceStable(res.Variants, func(i, j int) bool {
			return res.Variants[i].Bandwidth > res.Variants[j].Bandwidth
		})
		return res, nil
	case m3u8.MEDIA:
		media := playlist.(*m3u8.MediaPlaylist)
		return &ProbeResult{Segments: media.Count(), TargetDuration: media.TargetDuration}, nil
	}
	return nil, ErrUnsupportedPlaylist
}
