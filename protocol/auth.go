// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package protocol

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthProvider applies per-server authentication to outgoing requests.
type AuthProvider interface {
	// Authenticate applies authentication to the given request
	Authenticate(ctx context.Context, req *http.Request) error

	// Type returns the authentication type name
	Type() string
}

// NewAuthProvider builds an AuthProvider from a server's AuthSpec. A missing
// secret is reported here so it surfaces as a Connect-time failure.
func NewAuthProvider(serverName string, spec AuthSpec) (AuthProvider, error) {
	switch spec.Type {
	case "", "none":
		return &NoAuth{}, nil
	case "bearer":
		token := resolveSecret(spec.SecretEnv, spec.Token)
		if token == "" {
			return nil, fmt.Errorf("server %q: bearer token is not configured", serverName)
		}
		return NewBearerTokenAuth(token), nil
	case "api_key":
		key := resolveSecret(spec.SecretEnv, spec.APIKey)
		if key == "" {
			return nil, fmt.Errorf("server %q: API key is not configured", serverName)
		}
		return NewAPIKeyAuth(key, spec.KeyHeader), nil
	case "jwt":
		secret := resolveSecret(spec.SecretEnv, spec.Secret)
		if secret == "" {
			return nil, fmt.Errorf("server %q: JWT signing secret is not configured", serverName)
		}
		return NewJWTAuth(serverName, []byte(secret), 0), nil
	default:
		return nil, fmt.Errorf("server %q: unknown auth type %q", serverName, spec.Type)
	}
}

func resolveSecret(envName, inline string) string {
	if envName != "" {
		if v := os.Getenv(envName); v != "" {
			return v
		}
	}
	return inline
}

// NoAuth is the provider for servers without authentication.
type NoAuth struct{}

func (a *NoAuth) Authenticate(ctx context.Context, req *http.Request) error { return nil }
func (a *NoAuth) Type() string                                              { return "none" }

// BearerTokenAuth provides Bearer token authentication.
type BearerTokenAuth struct {
	token string
	mu    sync.RWMutex
}

// NewBearerTokenAuth creates a new Bearer token authentication provider.
func NewBearerTokenAuth(token string) *BearerTokenAuth {
	return &BearerTokenAuth{token: token}
}

// Authenticate applies the Bearer token to the request.
func (b *BearerTokenAuth) Authenticate(ctx context.Context, req *http.Request) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.token == "" {
		return fmt.Errorf("bearer token is not set")
	}
	req.Header.Set("Authorization", "Bearer "+b.token)
	return nil
}

// Type returns the authentication type.
func (b *BearerTokenAuth) Type() string { return "bearer" }

// SetToken updates the bearer token.
func (b *BearerTokenAuth) SetToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

// APIKeyAuth provides API key authentication via a request header.
type APIKeyAuth struct {
	apiKey  string
	keyName string
	mu      sync.RWMutex
}

// NewAPIKeyAuth creates a new API key authentication provider. keyName
// defaults to X-API-Key.
func NewAPIKeyAuth(apiKey, keyName string) *APIKeyAuth {
	if keyName == "" {
		keyName = "X-API-Key"
	}
	return &APIKeyAuth{apiKey: apiKey, keyName: keyName}
}

// Authenticate applies the API key to the request.
func (a *APIKeyAuth) Authenticate(ctx context.Context, req *http.Request) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.apiKey == "" {
		return fmt.Errorf("API key is not set")
	}
	req.Header.Set(a.keyName, a.apiKey)
	return nil
}

// Type returns the authentication type.
func (a *APIKeyAuth) Type() string { return "api_key" }

// JWTAuth signs a short-lived HMAC token per request. Used for servers that
// verify a shared signing secret instead of a static credential.
type JWTAuth struct {
	audience string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewJWTAuth creates a JWT auth provider. ttl defaults to 60s.
func NewJWTAuth(audience string, secret []byte, ttl time.Duration) *JWTAuth {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &JWTAuth{
		audience: audience,
		secret:   secret,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Authenticate mints and applies a fresh token for this request.
func (j *JWTAuth) Authenticate(ctx context.Context, req *http.Request) error {
	now := j.now()
	claims := jwt.RegisteredClaims{
		Issuer:    "workforce-core",
		Audience:  jwt.ClaimStrings{j.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return fmt.Errorf("failed to sign request token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+signed)
	return nil
}

// Type returns the authentication type.
func (j *JWTAuth) Type() string { return "jwt" }
