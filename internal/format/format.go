// Package format maps quality tiers and codec preferences to yt-dlp format
// selectors.
package format

import (
	"fmt"

	"github.com/ytget/streamgrab/internal/engine"
	"github.com/ytget/streamgrab/internal/model"
)

// Codec family tags matched with the vcodec*= operator
const (
	TagAVC = "avc"
	TagAV1 = "av01"
)

// Selector building blocks
const (
	AudioOnlyQuery = "bestaudio/best"
	FallbackQuery  = "best"
	AudioBitrate   = "192"
)

// Selection is the resolved format query for one request
type Selection struct {
	Primary        string
	Fallback       string
	PostProcessors []engine.PostProcessor
}

// Resolve returns the primary and fallback queries for a quality tier and
// codec preference. Every combination yields a usable selection; unknown
// tiers resolve like QualityBest.
func Resolve(quality model.Quality, codec model.Codec) Selection {
	tag := CodecTag(codec)

	switch quality {
	case model.QualityMP3, model.QualityM4A:
		return Selection{
			Primary:  AudioOnlyQuery,
			Fallback: FallbackQuery,
			PostProcessors: []engine.PostProcessor{{
				Kind:          engine.PostProcessorExtractAudio,
				TargetCodec:   string(quality),
				TargetQuality: AudioBitrate,
			}},
		}
	case model.Quality1080, model.Quality720, model.Quality480:
		h := quality.Height()
		return Selection{
			Primary: fmt.Sprintf(
				"bestvideo[height<=%d][vcodec*=%s]+bestaudio/best[height<=%d]/bestvideo[height<=%d]+bestaudio/best",
				h, tag, h, h),
			Fallback: FallbackQuery,
		}
	default:
		return Selection{
			Primary:  fmt.Sprintf("bestvideo[vcodec*=%s]+bestaudio/bestvideo+bestaudio/best", tag),
			Fallback: FallbackQuery,
		}
	}
}

// CodecTag returns the vcodec family tag for a codec preference
func CodecTag(codec model.Codec) string {
	if codec == model.CodecAV1 {
		return TagAV1
	}
	return TagAVC
}
