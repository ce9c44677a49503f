package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zhouzirui/msl-practice/backend/internal/model/persona"
)

// PersonaStore implements persona.Store with one JSONB document per persona.
type PersonaStore struct {
	pool *pgxpool.Pool
}

var _ persona.Store = (*PersonaStore)(nil)

func (s *PersonaStore) List(ctx context.Context) ([]persona.Persona, error) {
	rows, err := s.pool.Query(ctx, `SELECT doc FROM personas ORDER BY created_at, persona_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	defer rows.Close()

	var out []persona.Persona
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var p persona.Persona
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, fmt.Errorf("decode persona: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PersonaStore) Get(ctx context.Context, id string) (*persona.Persona, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM personas WHERE persona_id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, persona.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get persona: %w", err)
	}

	var p persona.Persona
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("decode persona: %w", err)
	}
	return &p, nil
}

func (s *PersonaStore) Put(ctx context.Context, p persona.Persona) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal persona: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO personas (persona_id, doc) VALUES ($1, $2)
		ON CONFLICT (persona_id) DO UPDATE SET doc = EXCLUDED.doc`, p.ID, doc)
	if err != nil {
		return fmt.Errorf("failed to save persona: %w", err)
	}
	return nil
}
