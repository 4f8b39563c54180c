package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"sqlexpansion/internal/infra"
	"sqlexpansion/internal/sqlinline"
)

const (
	// ProviderPipelines holds the bearer token of the remote pipeline runner.
	ProviderPipelines = "pipelines"
)

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) PipelinesAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderPipelines)
}

// Token returns the stored token for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetPipelinesAPIKey(ctx context.Context, key string, props map[string]any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("pipelines api key is required")
	}
	return s.upsert(ctx, ProviderPipelines, key, props)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
