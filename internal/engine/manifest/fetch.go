// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/grafov/m3u8"

	"github.com/ManuGH/hlswatch/internal/domain/playback/model"
	"github.com/ManuGH/hlswatch/internal/hls"
	"github.com/ManuGH/hlswatch/internal/metrics"
	platformnet "github.com/ManuGH/hlswatch/internal/platform/net"
	"github.com/ManuGH/hlswatch/internal/resilience"
)

// fetchError carries the engine error category of a failed load.
type fetchError struct {
	category model.ErrorCategory
	err      error
}

func (e *fetchError) Error() string { return e.err.Error() }
func (e *fetchError) Unwrap() error { return e.err }

func networkErr(format string, args ...any) error {
	return &fetchError{category: model.CategoryNetwork, err: fmt.Errorf(format, args...)}
}

func parseErr(format string, args ...any) error {
	return &fetchError{category: model.CategoryOther, err: fmt.Errorf(format, args...)}
}

type loadResult struct {
	levels   []model.QualityLevel
	timeline *hls.Timeline
	// warning is a non-fatal problem, e.g. an unreadable variant playlist.
	warning string
}

// load fetches the manifest at rawURL. Master playlists yield one level per
// variant plus the timeline of the first variant; media playlists yield no
// levels and their own timeline.
func (e *Engine) load(ctx context.Context, rawURL string) (*loadResult, error) {
	body, err := e.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if !bytes.HasPrefix(bytes.TrimSpace(body), []byte("#EXTM3U")) {
		return nil, parseErr("parse manifest: missing #EXTM3U header")
	}
	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), false)
	if err != nil {
		return nil, parseErr("parse manifest: %v", err)
	}

	switch listType {
	case m3u8.MASTER:
		master, ok := playlist.(*m3u8.MasterPlaylist)
		if !ok {
			return nil, parseErr("parse manifest: unexpected playlist type %T", playlist)
		}
		res := &loadResult{levels: levelsFromMaster(master)}
		if len(master.Variants) == 0 {
			return res, nil
		}
		variantURL, err := resolve(rawURL, master.Variants[0].URI)
		if err != nil {
			res.warning = fmt.Sprintf("variant playlist: %v", err)
			return res, nil
		}
		tl, err := e.timeline(ctx, variantURL)
		if err != nil {
			res.warning = fmt.Sprintf("variant playlist: %v", err)
			return res, nil
		}
		res.timeline = tl
		return res, nil
	case m3u8.MEDIA:
		tl, err := hls.ExtractTimeline(bytes.NewReader(body))
		if err != nil {
			return nil, parseErr("parse media playlist: %v", err)
		}
		return &loadResult{levels: []model.QualityLevel{}, timeline: tl}, nil
	default:
		return nil, parseErr("parse manifest: unknown playlist type")
	}
}

func (e *Engine) timeline(ctx context.Context, rawURL string) (*hls.Timeline, error) {
	body, err := e.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return hls.ExtractTimeline(bytes.NewReader(body))
}

func (e *Engine) fetch(ctx context.Context, rawURL string) (body []byte, err error) {
	start := time.Now()
	defer func() { metrics.ObserveManifestFetch(err == nil, time.Since(start)) }()

	safeURL := platformnet.SanitizeURL(rawURL)
	if err := e.outbound.Check(ctx, rawURL); err != nil {
		return nil, parseErr("fetch %s: %v", safeURL, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, parseErr("build request: %v", err)
	}

	err = e.breakers.For(req.URL.Hostname()).Execute(func() error {
		resp, err := e.client.Do(req)
		if err != nil {
			return networkErr("fetch %s: %w", safeURL, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return networkErr("fetch %s: HTTP %d", safeURL, resp.StatusCode)
		}
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes+1))
		if err != nil {
			return networkErr("read %s: %w", safeURL, err)
		}
		return nil
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, networkErr("fetch %s: host %s: %w", safeURL, req.URL.Hostname(), err)
	}
	if err != nil {
		return nil, err
	}
	if len(body) > maxManifestBytes {
		return nil, parseErr("manifest %s exceeds %d bytes", safeURL, maxManifestBytes)
	}
	return body, nil
}

func levelsFromMaster(master *m3u8.MasterPlaylist) []model.QualityLevel {
	levels := make([]model.QualityLevel, 0, len(master.Variants))
	for _, v := range master.Variants {
		if v == nil {
			continue
		}
		w, h := parseResolution(v.Resolution)
		levels = append(levels, model.NewQualityLevel(len(levels), int(v.Bandwidth), w, h, v.Codecs))
	}
	return levels
}

// parseResolution splits "WxH"; malformed values yield 0x0.
func parseResolution(raw string) (int, int) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(raw)), "x")
	if !ok {
		return 0, 0
	}
	w, err1 := strconv.Atoi(ws)
	h, err2 := strconv.Atoi(hs)
	if err1 != nil || err2 != nil || w < 0 || h < 0 {
		return 0, 0
	}
	return w, h
}

func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}
