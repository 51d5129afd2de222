package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/duskcore/agentd/internal/domain/entity"
	"github.com/duskcore/agentd/internal/domain/repository"
	"github.com/duskcore/agentd/internal/infrastructure/persistence/models"
)

// GormQueuedCommandRepository is the GORM-backed Airlock audit trail.
// Grounded on the teacher's GormAgentRepository: same
// FindByID/Save/toModel/toEntity shape, reused here for QueuedCommand
// instead of Agent.
type GormQueuedCommandRepository struct {
	db *gorm.DB
}

func NewGormQueuedCommandRepository(db *gorm.DB) repository.QueuedCommandRepository {
	return &GormQueuedCommandRepository{db: db}
}

func (r *GormQueuedCommandRepository) Save(ctx context.Context, cmd *entity.QueuedCommand) error {
	model, err := toCommandModel(cmd)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(model).Error
}

func (r *GormQueuedCommandRepository) FindByID(ctx context.Context, id string) (*entity.QueuedCommand, error) {
	var model models.QueuedCommandModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toCommandEntity(&model), nil
}

func (r *GormQueuedCommandRepository) FindByWorkspace(ctx context.Context, workspaceID string, limit int) ([]*entity.QueuedCommand, error) {
	var rows []models.QueuedCommandModel
	q := r.db.WithContext(ctx).Where("workspace_id = ?", workspaceID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.QueuedCommand, len(rows))
	for i, row := range rows {
		out[i] = toCommandEntity(&row)
	}
	return out, nil
}

func toCommandModel(cmd *entity.QueuedCommand) (*models.QueuedCommandModel, error) {
	paramsJSON, err := json.Marshal(cmd.Params)
	if err != nil {
		return nil, err
	}
	summary := string(paramsJSON)
	if len(summary) > 512 {
		summary = summary[:512] + "...[truncated]"
	}

	model := &models.QueuedCommandModel{
		ID:           cmd.ID,
		WorkspaceID:  cmd.WorkspaceID,
		Intent:       cmd.Intent,
		PayloadSummary: summary,
		AirlockLevel: int(cmd.AirlockLevel),
		Status:       string(cmd.Status),
		CreatedAt:    cmd.CreatedAt,
		ResolvedAt:   cmd.ResolvedAt,
	}
	if cmd.Result != nil {
		model.Success = cmd.Result.Success
		model.ErrorMessage = cmd.Result.Error
	}
	return model, nil
}

func toCommandEntity(model *models.QueuedCommandModel) *entity.QueuedCommand {
	cmd := &entity.QueuedCommand{
		ID:           model.ID,
		WorkspaceID:  model.WorkspaceID,
		Intent:       model.Intent,
		AirlockLevel: entity.AirlockLevel(model.AirlockLevel),
		Status:       entity.CommandStatus(model.Status),
		CreatedAt:    model.CreatedAt,
		ResolvedAt:   model.ResolvedAt,
	}
	if model.Status == string(entity.StatusCompleted) || model.Status == string(entity.StatusFailed) {
		cmd.Result = &entity.CommandResult{Success: model.Success, Error: model.ErrorMessage}
	}
	return cmd
}
