package repository

import (
	"fmt"
	"net/http"
	"strings"
)

// Modifier modifies a request before it is sent.
type Modifier interface {
	Modify(req *http.Request) error
}

// NewAuthorizer returns the modifier for target's auth scheme.
func NewAuthorizer(scheme string, creds Credentials) (Modifier, error) {
	switch strings.ToLower(scheme) {
	case "", "basic":
		if creds.Username == "" && creds.Token != "" {
			return &bearerAuthorizer{token: creds.Token}, nil
		}
		return &basicAuthorizer{username: creds.Username, password: creds.Password}, nil
	case "bearer":
		token := creds.Token
		if token == "" {
			token = creds.Password
		}
		return &bearerAuthorizer{token: token}, nil
	default:
		return nil, fmt.Errorf("unsupported auth scheme %q", scheme)
	}
}

type basicAuthorizer struct {
	username string
	password string
}

func (a *basicAuthorizer) Modify(req *http.Request) error {
	if a.username == "" && a.password == "" {
		return nil
	}
	req.SetBasicAuth(a.username, a.password)
	return nil
}

type bearerAuthorizer struct {
	token string
}

func (a *bearerAuthorizer) Modify(req *http.Request) error {
	if a.token == "" {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	return nil
}
