package secrets

import "context"

// Credentials is one brokerage login as stored in a secrets backend.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Provider defines a generic secrets manager interface. Concrete
// implementations (AWS, env vars, etc.) satisfy this.
type Provider interface {
	// GetSecret retrieves a secret by key/path and returns a key-value map.
	GetSecret(ctx context.Context, key string) (map[string]string, error)

	// ListSecrets returns the names of all secrets whose name matches the given prefix.
	ListSecrets(ctx context.Context, prefix string) ([]string, error)
}

// CredentialsFromSecret maps a raw secret payload to Credentials.
func CredentialsFromSecret(m map[string]string) Credentials {
	return Credentials{
		Email:    m["email"],
		Password: m["password"],
	}
}
