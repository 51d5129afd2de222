package persistence

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/duskcore/agentd/internal/infrastructure/persistence/models"
	"github.com/duskcore/agentd/internal/router"
)

// ProviderConfigStore persists the Router's fleet (spec §3) so it can be
// rehydrated on restart. Unlike QueuedCommandRepository this has no
// domain/repository interface: router.ProviderConfig is an
// infrastructure-level configuration type, not a domain entity, so the
// dependency-inversion indirection the teacher applies to Agent/Message
// doesn't apply here.
type ProviderConfigStore struct {
	db *gorm.DB
}

func NewProviderConfigStore(db *gorm.DB) *ProviderConfigStore {
	return &ProviderConfigStore{db: db}
}

func (s *ProviderConfigStore) FindAll(ctx context.Context) ([]router.ProviderConfig, error) {
	var rows []models.ProviderConfigModel
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]router.ProviderConfig, 0, len(rows))
	for _, row := range rows {
		cfg, err := toProviderConfig(&row)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

func (s *ProviderConfigStore) Save(ctx context.Context, cfg router.ProviderConfig) error {
	model, err := toProviderConfigModel(cfg)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Save(model).Error
}

func (s *ProviderConfigStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&models.ProviderConfigModel{}, "id = ?", id).Error
}

func toProviderConfigModel(cfg router.ProviderConfig) (*models.ProviderConfigModel, error) {
	modelsJSON, err := json.Marshal(cfg.Models)
	if err != nil {
		return nil, err
	}
	extraJSON, err := json.Marshal(cfg.Extra)
	if err != nil {
		return nil, err
	}
	return &models.ProviderConfigModel{
		ID:       cfg.ID,
		Type:     cfg.Type,
		BaseURL:  cfg.BaseURL,
		APIKey:   cfg.APIKey,
		Models:   string(modelsJSON),
		Priority: cfg.Priority,
		Weight:   cfg.Weight,
		Extra:    string(extraJSON),
	}, nil
}

func toProviderConfig(model *models.ProviderConfigModel) (router.ProviderConfig, error) {
	var models_ []string
	if model.Models != "" {
		if err := json.Unmarshal([]byte(model.Models), &models_); err != nil {
			return router.ProviderConfig{}, err
		}
	}
	var extra map[string]string
	if model.Extra != "" {
		if err := json.Unmarshal([]byte(model.Extra), &extra); err != nil {
			return router.ProviderConfig{}, err
		}
	}
	return router.ProviderConfig{
		ID:       model.ID,
		Type:     model.Type,
		BaseURL:  model.BaseURL,
		APIKey:   model.APIKey,
		Models:   models_,
		Priority: model.Priority,
		Weight:   model.Weight,
		Extra:    extra,
	}, nil
}
