// Package auth handles the Spotify authorization-code flow and keeps the
// resulting credential fresh inside a browser session.
package auth

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/justestif/go-setlist-to-playlist/internal/apperrors"
)

// Credential is the Spotify token set stored in a session.
// Expiry is derived from the clock at receipt plus ExpiresIn.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	Expiry       time.Time `json:"expiry"`
}

// Expired reports whether the access token can no longer be used at now.
// A credential without an expiry is treated as expired.
func (c *Credential) Expired(now time.Time) bool {
	return c.Expiry.IsZero() || !now.Before(c.Expiry)
}

// Token converts the credential for use with an oauth2 transport.
func (c *Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    c.TokenType,
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}

// newCredential builds a credential received at now. A token without a
// positive lifetime is rejected so a stored credential always expires
// strictly after it was received.
func newCredential(tok *oauth2.Token, now time.Time) (*Credential, error) {
	lifetime := lifetimeSeconds(tok, now)
	if lifetime <= 0 {
		return nil, fmt.Errorf("%w: token response has no lifetime", apperrors.ErrAuthProvider)
	}
	return &Credential{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    lifetime,
		Expiry:       now.Add(time.Duration(lifetime) * time.Second),
	}, nil
}

// lifetimeSeconds returns the token lifetime the provider reported, or 0
// when it reported none.
func lifetimeSeconds(tok *oauth2.Token, now time.Time) int64 {
	if tok.ExpiresIn > 0 {
		return tok.ExpiresIn
	}

	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}

	if !tok.Expiry.IsZero() {
		if d := tok.Expiry.Sub(now); d > 0 {
			return int64(d.Round(time.Second) / time.Second)
		}
	}
	return 0
}
