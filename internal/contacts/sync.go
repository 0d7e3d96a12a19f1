package contacts

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

const syncTokenLayout = "2006-01-02T15:04:05.000000Z"

// EncodeSyncToken renders t as an opaque token: base64 of the UTC timestamp at
// microsecond precision.
func EncodeSyncToken(t time.Time) string {
	return base64.StdEncoding.EncodeToString([]byte(t.UTC().Format(syncTokenLayout)))
}

// DecodeSyncToken reverses EncodeSyncToken. The "data:," prefix used on the
// wire is accepted. ok is false for an empty or unreadable token, which callers
// treat as a request for a full sync.
func DecodeSyncToken(token string) (t time.Time, ok bool) {
	token = strings.TrimPrefix(strings.TrimSpace(token), "data:,")
	if token == "" {
		return time.Time{}, false
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, false
	}
	t, err = time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// CTag is the quoted collection tag for a listing built at t.
func CTag(t time.Time) string {
	return `"` + strconv.FormatInt(t.UnixMilli(), 10) + `"`
}
