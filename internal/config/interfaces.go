package config

import "context"

// SecretProvider abstracts secret retrieval so the loader can use AWS SSM in
// deployed environments and plain environment variables locally.
type SecretProvider interface {
	// GetParametersBatch resolves keys and returns key -> plaintext for every
	// key that was found.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
