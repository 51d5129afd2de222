// Package repository defines the persistence contracts the domain layer
// depends on, implemented by internal/infrastructure/persistence.
// Grounded on the teacher's domain/repository package (dependency
// inversion: interfaces live with the domain, implementations don't).
package repository

import (
	"context"

	"github.com/duskcore/agentd/internal/domain/entity"
)

// QueuedCommandRepository persists the Airlock audit trail (spec §3):
// one row per command that passed through the Tool Policy Table and
// Airlock gate, regardless of outcome.
type QueuedCommandRepository interface {
	Save(ctx context.Context, cmd *entity.QueuedCommand) error
	FindByID(ctx context.Context, id string) (*entity.QueuedCommand, error)
	FindByWorkspace(ctx context.Context, workspaceID string, limit int) ([]*entity.QueuedCommand, error)
}
