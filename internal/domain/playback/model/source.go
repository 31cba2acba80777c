// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultManifestExtensions are the path suffixes accepted as HLS manifests.
var DefaultManifestExtensions = []string{".m3u8"}

// ValidateSourceURL checks that raw is an absolute http(s) URL whose path ends
// with one of the manifest extensions (case-insensitive). The query string is
// not considered. It returns the trimmed URL.
func ValidateSourceURL(raw string, extensions []string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty url", ErrInvalidSource)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidSource, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidSource)
	}
	if len(extensions) == 0 {
		extensions = DefaultManifestExtensions
	}
	path := strings.ToLower(u.Path)
	for _, ext := range extensions {
		if strings.HasSuffix(path, strings.ToLower(ext)) {
			return trimmed, nil
		}
	}
	return "", fmt.Errorf("%w: path %q does not reference a manifest (%s)", ErrInvalidSource, u.Path, strings.Join(extensions, ", "))
}
