package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonit-dev/night-watch-cli-sub005/core"
	"github.com/jonit-dev/night-watch-cli-sub005/models"
)

type personaRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Role      string `db:"role"`
	Expertise string `db:"expertise"`
	AvatarURL string `db:"avatar_url"`
	IsActive  bool   `db:"is_active"`
}

func (r personaRow) toModel() (models.Persona, error) {
	var expertise []string
	if r.Expertise != "" {
		if err := json.Unmarshal([]byte(r.Expertise), &expertise); err != nil {
			return models.Persona{}, fmt.Errorf("failed to decode expertise of persona %s: %w", r.ID, err)
		}
	}
	return models.Persona{
		ID:        r.ID,
		Name:      r.Name,
		Role:      r.Role,
		Expertise: expertise,
		AvatarURL: r.AvatarURL,
		IsActive:  r.IsActive,
	}, nil
}

const personaColumns = "id, name, role, expertise, avatar_url, is_active"

type SQLPersonasRepository struct {
	db *sqlx.DB
}

func NewSQLPersonasRepository(db *sqlx.DB) *SQLPersonasRepository {
	return &SQLPersonasRepository{db: db}
}

func (r *SQLPersonasRepository) UpsertPersona(ctx context.Context, persona models.Persona) error {
	expertise := persona.Expertise
	if expertise == nil {
		expertise = []string{}
	}
	encoded, err := json.Marshal(expertise)
	if err != nil {
		return fmt.Errorf("failed to encode expertise: %w", err)
	}

	query := r.db.Rebind(`
		INSERT INTO personas (id, name, role, expertise, avatar_url, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			expertise = excluded.expertise,
			avatar_url = excluded.avatar_url,
			is_active = excluded.is_active,
			updated_at = CURRENT_TIMESTAMP`)

	_, err = r.db.ExecContext(ctx, query,
		persona.ID, persona.Name, persona.Role, string(encoded), persona.AvatarURL, persona.IsActive)
	if err != nil {
		return fmt.Errorf("failed to upsert persona: %w", err)
	}
	return nil
}

func (r *SQLPersonasRepository) GetPersonaByID(ctx context.Context, id string) (models.Persona, error) {
	query := r.db.Rebind("SELECT " + personaColumns + " FROM personas WHERE id = ?")

	var row personaRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Persona{}, fmt.Errorf("persona %s: %w", id, core.ErrNotFound)
		}
		return models.Persona{}, fmt.Errorf("failed to get persona: %w", err)
	}
	return row.toModel()
}

// ListPersonas returns all personas ordered by creation, then id
func (r *SQLPersonasRepository) ListPersonas(ctx context.Context) ([]models.Persona, error) {
	return r.list(ctx, "SELECT "+personaColumns+" FROM personas ORDER BY created_at, id")
}

func (r *SQLPersonasRepository) ListActivePersonas(ctx context.Context) ([]models.Persona, error) {
	return r.list(ctx, r.db.Rebind("SELECT "+personaColumns+" FROM personas WHERE is_active = ? ORDER BY created_at, id"), true)
}

func (r *SQLPersonasRepository) list(ctx context.Context, query string, args ...any) ([]models.Persona, error) {
	var rows []personaRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}

	personas := make([]models.Persona, 0, len(rows))
	for _, row := range rows {
		persona, err := row.toModel()
		if err != nil {
			return nil, err
		}
		personas = append(personas, persona)
	}
	return personas, nil
}
