package credentials

// Well-known keys used by the request pipeline. Callers may store additional
// opaque values under their own keys.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// Store is durable key/value string storage for tokens and related secrets.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key. The second return is false when the key
	// is not present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}
