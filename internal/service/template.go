package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/leeveo/inscription-sub004/internal/apperr"
	"github.com/leeveo/inscription-sub004/internal/dto"
	"github.com/leeveo/inscription-sub004/internal/model"
	"github.com/leeveo/inscription-sub004/internal/render"
	"github.com/leeveo/inscription-sub004/internal/repository"
)

type TemplateService interface {
	Create(ctx context.Context, req *dto.TemplateRequest) (*model.TicketTemplate, error)
	UpdateLayout(ctx context.Context, id string, req *dto.TemplateRequest) (*model.TicketTemplate, error)
	SetDefault(ctx context.Context, id string) error
	ListByEvent(ctx context.Context, eventID string) ([]*model.TicketTemplate, error)
	// Preview renders the template against caller-supplied sample variables
	// without touching any participant data.
	Preview(ctx context.Context, id string, req *dto.TemplatePreviewRequest) ([]byte, string, error)
}

type templateServiceImpl struct {
	templateRepo repository.TemplateRepository
	eventRepo    repository.EventRepository
}

func NewTemplateService(templateRepo repository.TemplateRepository, eventRepo repository.EventRepository) TemplateService {
	return &templateServiceImpl{
		templateRepo: templateRepo,
		eventRepo:    eventRepo,
	}
}

func (s *templateServiceImpl) Create(ctx context.Context, req *dto.TemplateRequest) (*model.TicketTemplate, error) {
	if req.Name == "" {
		return nil, apperr.Validation("name", "required")
	}
	if req.Kind != model.TemplateTicket && req.Kind != model.TemplateBadge {
		return nil, apperr.Validation("kind", "must be TICKET or BADGE")
	}
	if _, err := s.eventRepo.FindByID(ctx, req.EventID); err != nil {
		return nil, apperr.Validation("event_id", "unknown event")
	}
	// schema must parse before it is accepted
	if _, err := render.ParseSchema(req.Schema); err != nil {
		return nil, apperr.Validation("schema", err.Error())
	}
	if _, err := render.ParseStyles(req.Styles); err != nil {
		return nil, apperr.Validation("styles", err.Error())
	}
	if _, err := render.ParseSettings(req.Settings); err != nil {
		return nil, apperr.Validation("settings", err.Error())
	}

	tpl := &model.TicketTemplate{
		ID:           uuid.NewString(),
		EventID:      req.EventID,
		TicketTypeID: req.TicketTypeID,
		Name:         req.Name,
		Kind:         req.Kind,
		Schema:       req.Schema,
		Styles:       req.Styles,
		Settings:     req.Settings,
		Version:      1,
	}
	if err := s.templateRepo.Create(ctx, tpl); err != nil {
		return nil, fmt.Errorf("store template: %w", err)
	}
	return tpl, nil
}

func (s *templateServiceImpl) UpdateLayout(ctx context.Context, id string, req *dto.TemplateRequest) (*model.TicketTemplate, error) {
	if _, err := render.ParseSchema(req.Schema); err != nil {
		return nil, apperr.Validation("schema", err.Error())
	}
	if _, err := render.ParseStyles(req.Styles); err != nil {
		return nil, apperr.Validation("styles", err.Error())
	}
	if _, err := render.ParseSettings(req.Settings); err != nil {
		return nil, apperr.Validation("settings", err.Error())
	}

	if err := s.templateRepo.UpdateLayout(ctx, id, req.Schema, req.Styles, req.Settings); err != nil {
		return nil, err
	}
	return s.templateRepo.FindByID(ctx, id)
}

func (s *templateServiceImpl) SetDefault(ctx context.Context, id string) error {
	return s.templateRepo.SetDefault(ctx, id)
}

func (s *templateServiceImpl) ListByEvent(ctx context.Context, eventID string) ([]*model.TicketTemplate, error) {
	return s.templateRepo.ListByEvent(ctx, eventID)
}

func (s *templateServiceImpl) Preview(ctx context.Context, id string, req *dto.TemplatePreviewRequest) ([]byte, string, error) {
	tpl, err := s.templateRepo.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	schema, err := render.ParseSchema(tpl.Schema)
	if err != nil {
		return nil, "", err
	}
	styles, err := render.ParseStyles(tpl.Styles)
	if err != nil {
		return nil, "", err
	}
	settings, err := render.ParseSettings(tpl.Settings)
	if err != nil {
		return nil, "", err
	}

	doc := render.Resolve(schema, styles, settings, req.Variables)

	switch req.Format {
	case FormatPDF:
		out, err := render.EncodePDF(doc)
		return out, "application/pdf", err
	case FormatESCPOS:
		out, err := render.EncodeESCPOS(doc)
		return out, "application/octet-stream", err
	case FormatHTML, "":
		out, err := render.EncodeHTML(doc)
		return out, "text/html; charset=utf-8", err
	default:
		return nil, "", apperr.Validation("format", "must be html, pdf or escpos")
	}
}
