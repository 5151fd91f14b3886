// Package manifest recovers an HLS manifest URL and a referrer from player
// JSON exports, and inspects HLS playlists before a download starts.
package manifest
