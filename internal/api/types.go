package api

import (
	"encoding/json"
	"fmt"
)

// Envelope wraps every response of the Extractio API.
type Envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type Session struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"`
}

type Format struct {
	Quality  string `json:"quality"`
	MimeType string `json:"mime_type"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

type Media struct {
	Identifier  string   `json:"identifier"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Author      string   `json:"author"`
	Thumbnail   string   `json:"thumbnail"`
	Duration    int      `json:"duration"`
	Views       int64    `json:"views"`
	Formats     []Format `json:"formats"`
}

type Kind int

const (
	KindNotFound Kind = iota
	KindFound
)

func (k Kind) String() string {
	if k == KindFound {
		return "found"
	}
	return "not_found"
}

// MediaResult is the lookup outcome. Media is set only for KindFound.
type MediaResult struct {
	Kind  Kind
	Media *Media
}

type mediaData struct {
	Media struct {
		YouTube *Media `json:"YouTube"`
	} `json:"Media"`
}

// DecodeMedia validates the data of a media lookup response.
func DecodeMedia(data json.RawMessage) (MediaResult, error) {
	if len(data) == 0 || string(data) == "null" {
		return MediaResult{Kind: KindNotFound}, nil
	}
	var d mediaData
	if err := json.Unmarshal(data, &d); err != nil {
		return MediaResult{}, fmt.Errorf("decode media: %w", err)
	}
	if d.Media.YouTube == nil {
		return MediaResult{Kind: KindNotFound}, nil
	}
	return MediaResult{Kind: KindFound, Media: d.Media.YouTube}, nil
}

// DecodeSession validates the data of a session response.
func DecodeSession(data json.RawMessage) (Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if s.Token == "" {
		return Session{}, fmt.Errorf("decode session: empty token")
	}
	return s, nil
}

// DecodeMediaList validates trend and related content responses.
func DecodeMediaList(data json.RawMessage) ([]Media, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var list []Media
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode media list: %w", err)
	}
	return list, nil
}
