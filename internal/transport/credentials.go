package transport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoCredential is returned when no token is available.
var ErrNoCredential = errors.New("no credential available")

// CredentialProvider supplies the access token. It is consulted on every
// connect so a rotated token is picked up by the next reconnect.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken always returns the same token.
type StaticToken string

// Token implements CredentialProvider.
func (s StaticToken) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrNoCredential
	}
	return string(s), nil
}

// EnvToken reads the token from an environment variable.
type EnvToken struct {
	Var string
}

// Token implements CredentialProvider.
func (e EnvToken) Token(context.Context) (string, error) {
	v := strings.TrimSpace(os.Getenv(e.Var))
	if v == "" {
		return "", fmt.Errorf("%w: $%s is empty", ErrNoCredential, e.Var)
	}
	return v, nil
}

// FileToken reads the token from a file. Surrounding whitespace is ignored.
type FileToken struct {
	Path string
}

// Token implements CredentialProvider.
func (f FileToken) Token(context.Context) (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s does not exist", ErrNoCredential, f.Path)
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNoCredential, f.Path)
	}
	return v, nil
}

// Chain returns the first token any provider yields. Providers reporting
// ErrNoCredential are skipped; other errors stop the search.
type Chain []CredentialProvider

// Token implements CredentialProvider.
func (c Chain) Token(ctx context.Context) (string, error) {
	for _, p := range c {
		tok, err := p.Token(ctx)
		if err == nil {
			return tok, nil
		}
		if !errors.Is(err, ErrNoCredential) {
			return "", err
		}
	}
	return "", ErrNoCredential
}
