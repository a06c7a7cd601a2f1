// Package auth implements the token/authorization surface (§4.5): three
// token kinds (Root, Author, Session), a Context shared by all
// connections mapping targetIds to live capability objects, and a
// TokenAuthority that verifies tokens. Author tokens are checked with a
// constant-time secret comparison; root secrets are checked by set
// membership (a map lookup, or a Redis SISMEMBER), not in constant
// time. Grounded on the
// opaque-credential-plus-segregated-store shape of
// ae-lexs-realtime-messaging-platform's auth_service.go (store
// interfaces split by concern, a single service orchestrating them) and
// the poll/heartbeat idiom of
// luvjson/crdtsync/redis_peer_discovery.go, reused here via
// internal/store's ChangeNotifier so root-token refresh shares the same
// wake-on-change primitive the document coordinator uses.
package auth

import (
	"crypto/subtle"
	"crypto/rand"
	"encoding/hex"

	"github.com/quillhub/scribe/ot/common"
)

// Kind is the closed set of token kinds (§4.5).
type Kind string

const (
	KindRoot    Kind = "root"
	KindAuthor  Kind = "author"
	KindSession Kind = "session"
)

// BearerToken is an opaque credential: a public id (safe to log) and a
// secret, compared only via constant time.
type BearerToken struct {
	Kind   Kind
	Id     string
	secret string
}

// idLen is the length of the public, loggable prefix of a minted token.
const idLen = 16

// NewBearerToken mints a fresh random token of the given kind.
func NewBearerToken(kind Kind) (BearerToken, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return BearerToken{}, "", err
	}
	encoded := hex.EncodeToString(raw)
	return BearerToken{Kind: kind, Id: encoded[:idLen], secret: encoded}, encoded, nil
}

// ParseBearerToken splits a presented wire token into its id (the first
// idLen characters) and the full secret, for authority lookup.
func ParseBearerToken(kind Kind, presented string) (BearerToken, bool) {
	if len(presented) < idLen {
		return BearerToken{}, false
	}
	return BearerToken{Kind: kind, Id: presented[:idLen], secret: presented}, true
}

// Equal compares the token's secret against presentedSecret in constant
// time.
func (t BearerToken) Equal(presentedSecret string) bool {
	if len(t.secret) != len(presentedSecret) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(t.secret), []byte(presentedSecret)) == 1
}

// SessionToken is the split form referenced in §4.5: a session token is
// (url, targetId) rather than a single opaque string, since it names a
// specific live Session object rather than authenticating a principal.
type SessionToken struct {
	URL      string
	TargetId string
}

// RootGrant is what a verified Root token authorizes: minting SessionInfo
// for any (author, doc) pair, and (dev mode only) overriding author-token
// resolution.
type RootGrant struct {
	DevMode bool
}

// SessionInfo is what the root capability's mintSessionInfo method
// (built in internal/app) produces: the material a client
// needs to open a session directly, bypassing per-author token exchange.
type SessionInfo struct {
	AuthorId   common.AuthorId
	DocumentId common.DocumentId
	Token      string
}
