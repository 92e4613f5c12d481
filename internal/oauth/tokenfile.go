package oauth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// Token is the persisted form of a Brightspace token pair.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scope        string    `json:"scope,omitempty"`
}

// FromOAuth2 converts an oauth2 token, keeping the granted scope.
func FromOAuth2(t *oauth2.Token) *Token {
	scope, _ := t.Extra("scope").(string)
	return &Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
		Scope:        scope,
	}
}

// LoadTokens reads a tokens file. A missing file yields an error satisfying
// errors.Is(err, os.ErrNotExist).
func LoadTokens(path string) (*Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse tokens file %s: %w", path, err)
	}
	return &tok, nil
}

// SaveTokens writes tok to path atomically with mode 0600: the data goes to a
// temporary file in the same directory which is then renamed over path.
func SaveTokens(path string, tok *Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tokens: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp_tokens_")
	if err != nil {
		return fmt.Errorf("failed to create temporary tokens file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict tokens file: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write tokens: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync tokens: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close tokens file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
