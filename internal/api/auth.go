package api

// TokenAuthenticator validates the shared secret carried in the webhook
// URL. An empty configured secret rejects every request so a missing
// deployment value fails closed.
type TokenAuthenticator struct {
	secret string
}

// NewTokenAuthenticator creates an authenticator for the given secret.
func NewTokenAuthenticator(secret string) *TokenAuthenticator {
	return &TokenAuthenticator{secret: secret}
}

// Authenticate reports whether the presented token matches the secret.
func (a *TokenAuthenticator) Authenticate(token string) bool {
	if a.secret == "" || token == "" {
		return false
	}
	return token == a.secret
}
