package auth

import (
	"strings"

	"github.com/google/uuid"
)

// Token prefixes identify the credential class without a database lookup.
const (
	PrefixApp     = "AP_"
	PrefixClient  = "CL_"
	PrefixWebhook = "WH_"
)

// TokenType classifies a bearer token by its prefix.
type TokenType int

const (
	// TokenSession is any token without a known prefix; it is treated as a JWT.
	TokenSession TokenType = iota
	TokenApp
	TokenClient
	TokenWebhook
)

// NewAppToken mints an application token: AP_ followed by 32 hex characters.
func NewAppToken() string {
	return PrefixApp + randomHex()
}

// NewClientToken mints a client token: CL_ followed by 32 hex characters.
func NewClientToken() string {
	return PrefixClient + randomHex()
}

// NewWebhookToken mints a webhook token: WH_ followed by 32 hex characters.
func NewWebhookToken() string {
	return PrefixWebhook + randomHex()
}

// ClassifyToken determines the credential class of a token string by prefix.
// Anything without a known prefix is assumed to be a session JWT.
func ClassifyToken(token string) TokenType {
	switch {
	case strings.HasPrefix(token, PrefixApp):
		return TokenApp
	case strings.HasPrefix(token, PrefixClient):
		return TokenClient
	case strings.HasPrefix(token, PrefixWebhook):
		return TokenWebhook
	default:
		return TokenSession
	}
}

// randomHex returns 32 hex characters from a v4 UUID, which draws from
// crypto/rand.
func randomHex() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
