package model

import (
	"errors"
	"strings"
)

// Quality is the user-facing quality tier of a download
type Quality string

const (
	QualityBest Quality = "best"
	Quality1080 Quality = "1080"
	Quality720  Quality = "720"
	Quality480  Quality = "480"
	QualityMP3  Quality = "mp3"
	QualityM4A  Quality = "m4a"
)

// Codec is the preferred video codec family
type Codec string

const (
	CodecH264 Codec = "h264"
	CodecAV1  Codec = "av1"
)

var (
	// ErrEmptyURL is returned when a request carries no source URL
	ErrEmptyURL = errors.New("source URL is empty")
	// ErrEmptyDestination is returned when a request carries no destination directory
	ErrEmptyDestination = errors.New("destination directory is empty")
)

// Qualities returns the supported quality tiers in display order
func Qualities() []Quality {
	return []Quality{QualityBest, Quality1080, Quality720, Quality480, QualityMP3, QualityM4A}
}

// Codecs returns the supported codec preferences
func Codecs() []Codec {
	return []Codec{CodecH264, CodecAV1}
}

// ParseQuality normalizes user input such as "720p" or "MP3".
// Unknown values are kept as-is; the format resolver treats them as best.
func ParseQuality(s string) Quality {
	q := strings.ToLower(strings.TrimSpace(s))
	q = strings.TrimSuffix(q, "p")
	if q == "" {
		return QualityBest
	}
	return Quality(q)
}

// IsAudio reports whether the tier produces an audio-only file
func (q Quality) IsAudio() bool {
	return q == QualityMP3 || q == QualityM4A
}

// Height returns the maximum video height for fixed tiers, 0 otherwise
func (q Quality) Height() int {
	switch q {
	case Quality1080:
		return 1080
	case Quality720:
		return 720
	case Quality480:
		return 480
	}
	return 0
}

// ParseCodec normalizes user input; anything that is not AV1 maps to H.264
func ParseCodec(s string) Codec {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "av1", "av01":
		return CodecAV1
	}
	return CodecH264
}

// DownloadRequest describes one user download action
type DownloadRequest struct {
	URL            string
	DestinationDir string
	Quality        Quality
	Codec          Codec
	Referrer       string // optional, sent as Referer header
	OutputName     string // optional, replaces the title in the output template
}

// Validate checks that URL and destination are set
func (r DownloadRequest) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return ErrEmptyURL
	}
	if strings.TrimSpace(r.DestinationDir) == "" {
		return ErrEmptyDestination
	}
	return nil
}
