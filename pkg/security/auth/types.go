package auth

// TokenInfo is one accepted API token.
type TokenInfo struct {
	// Name identifies the token in logs.
	Name string

	// Token is the secret value presented by clients.
	Token string

	Enabled bool
}

// TokenStore validates tokens.
type TokenStore interface {
	Validate(token string) (*TokenInfo, error)
	List() []*TokenInfo
}
