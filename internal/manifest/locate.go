package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ytget/streamgrab/internal/jsonvalue"
)

// Field names and markers used by player exports
const (
	PreferredField = "shakahls"
	ReferrerField  = "referrer"
	Marker         = ".m3u8"
)

// ErrManifestNotFound is reported by callers when Locate finds nothing
var ErrManifestNotFound = errors.New("no manifest URL found")

// Result holds the fields recovered from a document
type Result struct {
	ManifestURL string
	Referrer    string
}

// Found reports whether a manifest URL was located
func (r Result) Found() bool {
	return r.ManifestURL != ""
}

// Locate searches doc depth-first for a manifest URL. A PreferredField string
// member wins immediately; otherwise the first string containing Marker in
// traversal order is used. The referrer is only read from the top level.
func Locate(doc jsonvalue.Value) Result {
	var res Result
	if ref, ok := doc.Get(ReferrerField); ok && ref.Kind == jsonvalue.String {
		res.Referrer = ref.Str
	}
	if u, ok := find(doc); ok {
		res.ManifestURL = Truncate(u)
	}
	return res
}

func find(v jsonvalue.Value) (string, bool) {
	switch v.Kind {
	case jsonvalue.Object:
		for _, m := range v.Members {
			if m.Key == PreferredField && m.Value.Kind == jsonvalue.String && m.Value.Str != "" {
				return m.Value.Str, true
			}
			if u, ok := match(m.Value); ok {
				return u, true
			}
		}
	case jsonvalue.Array:
		for _, item := range v.Items {
			if u, ok := match(item); ok {
				return u, true
			}
		}
	case jsonvalue.Null, jsonvalue.Bool, jsonvalue.Number, jsonvalue.String:
	}
	return "", false
}

// match checks a member or element: marked strings match, containers recurse
func match(v jsonvalue.Value) (string, bool) {
	switch v.Kind {
	case jsonvalue.String:
		if strings.Contains(v.Str, Marker) {
			return v.Str, true
		}
	case jsonvalue.Object, jsonvalue.Array:
		return find(v)
	case jsonvalue.Null, jsonvalue.Bool, jsonvalue.Number:
	}
	return "", false
}

// Truncate cuts u right after the first Marker, dropping query and tail
func Truncate(u string) string {
	if i := strings.Index(u, Marker); i >= 0 {
		return u[:i+len(Marker)]
	}
	return u
}

// LoadFile reads and parses a JSON document from path
func LoadFile(path string) (jsonvalue.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return jsonvalue.Value{}, fmt.Errorf("read %s: %w", path, err)
	}
	v, err := jsonvalue.Parse(data)
	if err != nil {
		return jsonvalue.Value{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

// SuggestName returns the file name of path without directory and extension,
// used as the default output name for a manifest download
func SuggestName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
