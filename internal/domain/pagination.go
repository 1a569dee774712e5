package domain

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// DefaultPageSize is the directory page size when none is configured.
const DefaultPageSize = 100

// DecodePageToken decodes an opaque continuation token into an integer
// offset. The empty token means "start from the top".
func DecodePageToken(token string) (int, error) {
	if token == "" {
		return 0, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return 0, fmt.Errorf("malformed page token")
	}
	offset, err := strconv.Atoi(string(decoded))
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("malformed page token")
	}
	return offset, nil
}

// EncodePageToken creates an opaque continuation token from an offset.
// Returns the empty string for offset <= 0, meaning "start from the top".
func EncodePageToken(offset int) string {
	if offset <= 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%d", offset)))
}

// NextPageToken returns the continuation token for the page after the one at
// offset, or the empty string when the listing is exhausted.
func NextPageToken(offset, limit int, total int64) string {
	next := offset + limit
	if int64(next) >= total {
		return ""
	}
	return EncodePageToken(next)
}
