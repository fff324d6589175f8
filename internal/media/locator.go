// Package media turns user supplied media URLs into platform identifiers.
package media

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

type Platform string

const YouTube Platform = "YouTube"

var (
	ErrUnsupportedPlatform = errors.New("media: unsupported platform")
	ErrInvalidLocator      = errors.New("media: invalid locator")
)

// Locator identifies one media item on a supported platform.
type Locator struct {
	Platform   Platform
	Identifier string
}

func (l Locator) String() string { return string(l.Platform) + ":" + l.Identifier }

// SourceURL is the canonical page of the media item.
func (l Locator) SourceURL() string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(l.Identifier)
}

var youtubeID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var youtubeHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
	"youtu.be":          true,
}

// Parse extracts the locator from a media URL. A missing scheme is assumed
// to be https.
func Parse(raw string) (Locator, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Locator{}, fmt.Errorf("%w: empty url", ErrInvalidLocator)
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return Locator{}, fmt.Errorf("%w: %q", ErrInvalidLocator, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Locator{}, fmt.Errorf("%w: scheme %q", ErrInvalidLocator, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if !youtubeHosts[host] {
		return Locator{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, host)
	}

	id := youtubeIdentifier(host, u)
	if !youtubeID.MatchString(id) {
		return Locator{}, fmt.Errorf("%w: no video id in %q", ErrInvalidLocator, raw)
	}
	return Locator{Platform: YouTube, Identifier: id}, nil
}

func youtubeIdentifier(host string, u *url.URL) string {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if host == "youtu.be" {
		return segments[0]
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	if len(segments) == 2 {
		switch segments[0] {
		case "shorts", "embed", "live", "v":
			return segments[1]
		}
	}
	return ""
}
