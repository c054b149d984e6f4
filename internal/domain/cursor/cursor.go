// Package cursor encodes leaderboard resume positions as opaque tokens.
//
// A position is the compound sort key (points DESC, user id ASC) of the
// last row a client has seen. Tokens are opaque: callers must not infer
// ordering or equality from the token text, only from Decode.
package cursor

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// version tags the token payload so the format can evolve without
// silently misreading old tokens.
const version = "v1"

const payloadParts = 3 // version, score, id

// Encode packs a (score, tieBreakID) position into an opaque token.
// Decode(Encode(s, id)) == (s, id) for every valid position.
func Encode(score int64, tieBreakID string) string {
	payload := version + ":" + strconv.FormatInt(score, 10) + ":" + tieBreakID
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// Decode unpacks a token produced by Encode. Malformed, tampered, or
// out-of-domain tokens fail with ErrInvalidCursor; they are never
// clamped to a first-page position, so lost pagination state surfaces
// to the caller instead of being masked.
func Decode(token string) (score int64, tieBreakID string, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, "", fmt.Errorf("%w: not base64url", ErrInvalidCursor)
	}
	parts := strings.SplitN(string(raw), ":", payloadParts)
	if len(parts) != payloadParts || parts[0] != version {
		return 0, "", fmt.Errorf("%w: bad payload", ErrInvalidCursor)
	}
	score, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: bad score", ErrInvalidCursor)
	}
	if score < 0 {
		return 0, "", fmt.Errorf("%w: negative score", ErrInvalidCursor)
	}
	if parts[2] == "" {
		return 0, "", fmt.Errorf("%w: empty tie-break id", ErrInvalidCursor)
	}
	return score, parts[2], nil
}
