package oauthidp

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
)

// TokenKey is the storage key of the persisted provider session
const TokenKey = "providerToken"

// storedToken is the persisted form of an oauth2.Token; the id_token lives in
// the token extras, which oauth2.Token does not marshal
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
}

// load restores the persisted session when none is held. Caller holds p.mu.
func (p *Provider) load(ctx context.Context) {
	if p.token != nil || p.cfg.Store == nil {
		return
	}

	raw, ok, err := p.cfg.Store.Get(ctx, TokenKey)
	if err != nil {
		slog.Warn("Failed to read provider session", "error", err)
		return
	}
	if !ok {
		return
	}

	var st storedToken
	if err := json.Unmarshal([]byte(raw), &st); err != nil || st.AccessToken == "" {
		slog.Warn("Dropping unreadable provider session", "error", err)
		p.forget(ctx)
		return
	}

	tok := &oauth2.Token{
		AccessToken:  st.AccessToken,
		TokenType:    st.TokenType,
		RefreshToken: st.RefreshToken,
		Expiry:       st.Expiry,
	}
	if st.IDToken != "" {
		tok = tok.WithExtra(map[string]any{"id_token": st.IDToken})
	}
	p.token = tok
}

// persist writes the held session to the store. Caller holds p.mu.
func (p *Provider) persist(ctx context.Context) {
	if p.token == nil || p.cfg.Store == nil {
		return
	}

	st := storedToken{
		AccessToken:  p.token.AccessToken,
		TokenType:    p.token.TokenType,
		RefreshToken: p.token.RefreshToken,
		Expiry:       p.token.Expiry,
	}
	st.IDToken, _ = p.token.Extra("id_token").(string)

	data, err := json.Marshal(st)
	if err != nil {
		slog.Warn("Failed to encode provider session", "error", err)
		return
	}
	if err := p.cfg.Store.Set(ctx, TokenKey, string(data)); err != nil {
		slog.Warn("Failed to persist provider session", "error", err)
	}
}

// forget drops the held and the persisted session. Caller holds p.mu.
func (p *Provider) forget(ctx context.Context) {
	p.token = nil
	if p.cfg.Store == nil {
		return
	}
	if err := p.cfg.Store.Delete(ctx, TokenKey); err != nil {
		slog.Warn("Failed to delete provider session", "error", err)
	}
}
