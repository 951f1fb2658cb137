package templates

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTemplateNotFound reports a lookup for a template that does not exist.
var ErrTemplateNotFound = errors.New("template not found")

// Repository is the data-access boundary for templates.
type Repository interface {
	Create(ctx context.Context, tpl *Template) error
	GetByID(ctx context.Context, id uuid.UUID) (*Template, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Template, error)
	Update(ctx context.Context, tpl *Template) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a gorm-backed template repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// Migrate creates or updates the templates table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Template{})
}

func (r *gormRepository) Create(ctx context.Context, tpl *Template) error {
	return r.db.WithContext(ctx).Create(tpl).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Template, error) {
	var tpl Template
	err := r.db.WithContext(ctx).First(&tpl, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *gormRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Template, error) {
	var tpls []Template
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&tpls).Error
	return tpls, err
}

func (r *gormRepository) Update(ctx context.Context, tpl *Template) error {
	res := r.db.WithContext(ctx).Model(&Template{}).Where("id = ?", tpl.ID).Updates(map[string]any{
		"name":        tpl.Name,
		"description": tpl.Description,
		"layout":      tpl.Layout,
		"updated_at":  tpl.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&Template{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTemplateNotFound
	}
	return nil
}
