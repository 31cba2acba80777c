// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package recent records the streams a viewer started and lists them back,
// most recent first.
package recent

import (
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// DefaultQuality is the label stored for streams recorded by URL alone.
	DefaultQuality = "720p"
	untitled       = "Untitled Stream"
)

// Stream is one recent-streams entry.
type Stream struct {
	ID       string    `json:"id"`
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Quality  string    `json:"quality"`
	IsLive   bool      `json:"isLive"`
	ViewedAt time.Time `json:"viewedAt"`
}

// DeriveTitle turns the last path segment of rawURL into a display title.
// The manifest extension is dropped, dashes become spaces and the first
// letter is upper-cased; the rest is kept as written. URLs without a usable
// segment yield "Untitled Stream".
func DeriveTitle(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return untitled
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return untitled
	}
	if ext := path.Ext(base); strings.EqualFold(ext, ".m3u8") || strings.EqualFold(ext, ".m3u") {
		base = base[:len(base)-len(ext)]
	}
	base = strings.ReplaceAll(base, "-", " ")
	if strings.TrimSpace(base) == "" {
		return untitled
	}
	// Casers carry state, so each call gets its own.
	r, size := utf8.DecodeRuneInString(base)
	return cases.Upper(language.Und).String(string(r)) + base[size:]
}

// Samples are the entries a fresh store is seeded with.
func Samples() []Stream {
	return []Stream{
		{
			URL:     "https://bitdash-a.akamaihd.net/content/sintel/hls/playlist.m3u8",
			Title:   "Sports Championship Stream",
			Quality: "1080p",
			IsLive:  true,
		},
		{
			URL:     "https://demo.unified-streaming.com/k8s/features/stable/video/tears-of-steel/tears-of-steel.ism/.m3u8",
			Title:   "Music Festival Live",
			Quality: "720p",
		},
		{
			URL:     "https://storage.googleapis.com/shaka-demo-assets/angel-one-hls/hls.m3u8",
			Title:   "Tech Conference 2023",
			Quality: "480p",
		},
	}
}
