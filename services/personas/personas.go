package personas

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonit-dev/night-watch-cli-sub005/core"
	"github.com/jonit-dev/night-watch-cli-sub005/core/log"
	"github.com/jonit-dev/night-watch-cli-sub005/models"
)

// PersonasRepository is the storage the service reads personas from
type PersonasRepository interface {
	UpsertPersona(ctx context.Context, persona models.Persona) error
	GetPersonaByID(ctx context.Context, id string) (models.Persona, error)
	ListPersonas(ctx context.Context) ([]models.Persona, error)
	ListActivePersonas(ctx context.Context) ([]models.Persona, error)
}

type PersonasService struct {
	repo PersonasRepository
}

func NewPersonasService(repo PersonasRepository) *PersonasService {
	return &PersonasService{repo: repo}
}

// SeedPersonas upserts the configured personas so config stays the source of truth on every start
func (s *PersonasService) SeedPersonas(ctx context.Context, personas []models.Persona) error {
	log.Info("📋 Starting to seed %d personas", len(personas))
	created := 0
	for _, p := range personas {
		if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("persona id and name cannot be empty (got id=%q name=%q)", p.ID, p.Name)
		}

		_, err := s.GetPersonaByID(ctx, p.ID)
		switch {
		case core.IsNotFoundError(err):
			created++
		case err != nil:
			return err
		}

		if err := s.repo.UpsertPersona(ctx, p); err != nil {
			return fmt.Errorf("failed to seed persona %s: %w", p.ID, err)
		}
	}
	log.Info("📋 Completed successfully - seeded %d personas (%d new)", len(personas), created)
	return nil
}

// ListActivePersonas returns the personas allowed to speak. An empty list is ErrNoPersonas.
func (s *PersonasService) ListActivePersonas(ctx context.Context) ([]models.Persona, error) {
	personas, err := s.repo.ListActivePersonas(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active personas: %w", err)
	}
	if len(personas) == 0 {
		return nil, core.ErrNoPersonas
	}
	return personas, nil
}

func (s *PersonasService) GetPersonaByID(ctx context.Context, id string) (models.Persona, error) {
	persona, err := s.repo.GetPersonaByID(ctx, id)
	if err != nil {
		return models.Persona{}, fmt.Errorf("failed to get persona %s: %w", id, err)
	}
	return persona, nil
}
