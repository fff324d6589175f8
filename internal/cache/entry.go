package cache

import (
	"encoding/json"
	"errors"
	"time"
)

// Entry is the record persisted under a resource key.
type Entry struct {
	Key      string          `json:"key"`
	Value    json.RawMessage `json:"value"`
	StoredAt int64           `json:"stored_at"`
	Identity string          `json:"identity,omitempty"`
}

var errMalformedEntry = errors.New("cache: malformed entry")

// Fresh reports whether the entry may be served for identity at now.
// An empty identity matches any stored subject.
func (e Entry) Fresh(now time.Time, ttl time.Duration, identity string) bool {
	if identity != "" && e.Identity != identity {
		return false
	}
	return now.Unix() < e.StoredAt+int64(ttl/time.Second)
}

func decodeEntry(key string, b []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, errors.Join(errMalformedEntry, err)
	}
	if e.Key != key || e.StoredAt <= 0 || len(e.Value) == 0 {
		return Entry{}, errMalformedEntry
	}
	return e, nil
}
