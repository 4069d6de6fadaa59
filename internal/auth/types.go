package auth

// TokenPair is the outcome of a successful refresh
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// refreshRequest is the wire-level body sent to the refresh endpoint
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshResponse is the wire-level refresh endpoint response. The refresh
// token is optional; servers that do not rotate it omit the field.
type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int    `json:"expiresIn,omitempty"`
}
