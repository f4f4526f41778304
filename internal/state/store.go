package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/swiftvfs/internal/models"
	"github.com/dmitrijs2005/swiftvfs/internal/repositories"
	"github.com/dmitrijs2005/swiftvfs/internal/repositories/files"
	"github.com/dmitrijs2005/swiftvfs/internal/repositories/tokens"
	"github.com/dmitrijs2005/swiftvfs/internal/token"
)

// Store persists state between runs.
type Store struct {
	tokens tokens.Repository
	files  files.Repository
}

func NewStore(repos *repositories.Repositories) *Store {
	return &Store{tokens: repos.Tokens, files: repos.Files}
}

// SaveToken keeps the serialized token and its decoded payload, replacing
// any token saved before.
func (s *Store) SaveToken(ctx context.Context, serialized string, tok *token.Token) error {
	payload, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return s.tokens.Save(ctx, tokens.Record{
		Serialized: serialized,
		UserID:     tok.User().ID,
		PageSpace:  tok.PageSpace(),
		ExpiresAt:  tok.ExpiresAt(),
		Payload:    payload,
	})
}

// LoadToken returns the saved token, or ("", nil, nil) when there is none.
func (s *Store) LoadToken(ctx context.Context) (string, *token.Token, error) {
	rec, err := s.tokens.Current(ctx)
	if errors.Is(err, tokens.ErrNotFound) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	tok, err := token.Parse(rec.Payload)
	if err != nil {
		return "", nil, fmt.Errorf("saved token: %w", err)
	}
	return rec.Serialized, tok, nil
}

// Forget drops the saved token.
func (s *Store) Forget(ctx context.Context) error {
	return s.tokens.Delete(ctx)
}

// SaveFiles replaces the cached files of scope.
func (s *Store) SaveFiles(ctx context.Context, scope string, fs []models.RemoteFile) error {
	return s.files.Replace(ctx, scope, fs)
}

// LoadFiles returns the cached files of scope.
func (s *Store) LoadFiles(ctx context.Context, scope string) ([]models.RemoteFile, error) {
	return s.files.List(ctx, scope)
}

func (s *Store) putFile(ctx context.Context, scope string, f models.RemoteFile) error {
	return s.files.Upsert(ctx, scope, f)
}

func (s *Store) deleteFile(ctx context.Context, scope, remotePath string) error {
	return s.files.Delete(ctx, scope, remotePath)
}
