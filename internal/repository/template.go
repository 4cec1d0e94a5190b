package repository

import (
	"context"
	"errors"
	"time"

	"github.com/leeveo/inscription-sub004/internal/apperr"
	"github.com/leeveo/inscription-sub004/internal/model"
	"gorm.io/gorm"
)

type TemplateRepository interface {
	Create(ctx context.Context, template *model.TicketTemplate) error
	FindByID(ctx context.Context, id string) (*model.TicketTemplate, error)
	// UpdateLayout replaces schema/styles/settings and bumps version so
	// previously rendered artifacts stay attributable to the version that
	// produced them.
	UpdateLayout(ctx context.Context, id, schema, styles, settings string) error
	// SetDefault clears the previous default and sets the new one inside a
	// single transaction; two racing calls serialize at the store and
	// exactly one default survives.
	SetDefault(ctx context.Context, id string) error
	FindDefault(ctx context.Context, eventID string, ticketTypeID *string) (*model.TicketTemplate, error)
	ListByEvent(ctx context.Context, eventID string) ([]*model.TicketTemplate, error)
}

type templateRepoImpl struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepoImpl{db: db}
}

func (r *templateRepoImpl) Create(ctx context.Context, template *model.TicketTemplate) error {
	if template.Version == 0 {
		template.Version = 1
	}
	return r.db.WithContext(ctx).Create(template).Error
}

func (r *templateRepoImpl) FindByID(ctx context.Context, id string) (*model.TicketTemplate, error) {
	var tpl model.TicketTemplate
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	return &tpl, nil
}

func (r *templateRepoImpl) UpdateLayout(ctx context.Context, id, schema, styles, settings string) error {
	result := r.db.WithContext(ctx).Model(&model.TicketTemplate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"schema":     schema,
			"styles":     styles,
			"settings":   settings,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.ErrNotFound
	}

	return nil
}

func (r *templateRepoImpl) SetDefault(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tpl, err := r.findInTx(tx, id)
		if err != nil {
			return err
		}

		scope := tx.Model(&model.TicketTemplate{}).
			Where("event_id = ? AND kind = ?", tpl.EventID, tpl.Kind)
		if tpl.TicketTypeID != nil {
			scope = scope.Where("ticket_type_id = ?", *tpl.TicketTypeID)
		} else {
			scope = scope.Where("ticket_type_id IS NULL")
		}

		if err := scope.Where("is_default = ?", true).
			Update("is_default", false).Error; err != nil {
			return err
		}

		return tx.Model(&model.TicketTemplate{}).
			Where("id = ?", id).
			Update("is_default", true).Error
	})
}

func (r *templateRepoImpl) FindDefault(ctx context.Context, eventID string, ticketTypeID *string) (*model.TicketTemplate, error) {
	// ticket-type default wins over the event-wide default
	if ticketTypeID != nil {
		var tpl model.TicketTemplate
		err := r.db.WithContext(ctx).
			Where("event_id = ? AND ticket_type_id = ? AND is_default = ?", eventID, *ticketTypeID, true).
			First(&tpl).Error
		if err == nil {
			return &tpl, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	var tpl model.TicketTemplate
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND ticket_type_id IS NULL AND is_default = ?", eventID, true).
		First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	return &tpl, nil
}

func (r *templateRepoImpl) ListByEvent(ctx context.Context, eventID string) ([]*model.TicketTemplate, error) {
	var tpls []*model.TicketTemplate
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at").
		Find(&tpls).Error
	if err != nil {
		return nil, err
	}

	return tpls, nil
}

func (r *templateRepoImpl) findInTx(tx *gorm.DB, id string) (*model.TicketTemplate, error) {
	var tpl model.TicketTemplate
	err := tx.Where("id = ?", id).First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	return &tpl, nil
}
