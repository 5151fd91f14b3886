package engine

// Package engine describes the fetch engine boundary: the options passed to
// an engine, the info record it returns, the raw progress events it emits and
// the sentinel errors used to classify its failures. Concrete engines live in
// the dlp (yt-dlp executable) and native (pure Go YouTube) subpackages.
