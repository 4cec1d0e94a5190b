package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leeveo/inscription-sub004/internal/apperr"
	"github.com/leeveo/inscription-sub004/internal/client"
	"github.com/leeveo/inscription-sub004/internal/model"
	"github.com/leeveo/inscription-sub004/internal/render"
	"github.com/leeveo/inscription-sub004/internal/repository"
	"gorm.io/gorm"
)

// Output formats for rendered passes.
const (
	FormatHTML   = "html"
	FormatPDF    = "pdf"
	FormatESCPOS = "escpos"
)

type FulfillmentService interface {
	// FulfillOrder materializes one participant per purchased seat and
	// renders/delivers each ticket. Per-unit failures are recorded and
	// never unwind the payment or sibling participants.
	FulfillOrder(ctx context.Context, orderID string) error
	// RenderPass renders one participant's ticket in the requested format
	// and returns the bytes plus a content type.
	RenderPass(ctx context.Context, token, format string) ([]byte, string, error)
	GetTicket(ctx context.Context, token string) (*model.Participant, error)
	CheckIn(ctx context.Context, token string) (*model.Participant, bool, error)
}

type fulfillmentServiceImpl struct {
	db              *gorm.DB
	mailer          client.Mailer
	eventRepo       repository.EventRepository
	orderRepo       repository.OrderRepository
	participantRepo repository.ParticipantRepository
	templateRepo    repository.TemplateRepository
	printJobRepo    repository.PrintJobRepository
	baseURL         string
}

func NewFulfillmentService(
	db *gorm.DB,
	mailer client.Mailer,
	eventRepo repository.EventRepository,
	orderRepo repository.OrderRepository,
	participantRepo repository.ParticipantRepository,
	templateRepo repository.TemplateRepository,
	printJobRepo repository.PrintJobRepository,
	baseURL string,
) FulfillmentService {
	return &fulfillmentServiceImpl{
		db:              db,
		mailer:          mailer,
		eventRepo:       eventRepo,
		orderRepo:       orderRepo,
		participantRepo: participantRepo,
		templateRepo:    templateRepo,
		printJobRepo:    printJobRepo,
		baseURL:         baseURL,
	}
}

func (s *fulfillmentServiceImpl) FulfillOrder(ctx context.Context, orderID string) error {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	if order.Status != model.OrderPaid {
		return fmt.Errorf("order %s is %s, not paid", orderID, order.Status)
	}

	// second idempotency belt behind the paid-transition guard: a replay
	// that somehow reaches here must not duplicate participants
	existing, err := s.participantRepo.CountByOrder(ctx, s.db, orderID)
	if err != nil {
		return fmt.Errorf("count participants: %w", err)
	}
	if existing > 0 {
		return nil
	}

	event, err := s.eventRepo.FindByID(ctx, order.EventID)
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}

	items, err := s.orderRepo.GetOrderItems(ctx, s.db, orderID)
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}

	for _, item := range items {
		for unit := int64(0); unit < item.Quantity; unit++ {
			participant := &model.Participant{
				ID:          uuid.NewString(),
				OrderItemID: item.ID,
				OrderID:     order.ID,
				EventID:     order.EventID,
				Name:        order.BuyerName,
				Email:       order.BuyerEmail,
				Token:       newTicketToken(),
			}
			if err := s.participantRepo.Create(ctx, s.db, participant); err != nil {
				return fmt.Errorf("create participant: %w", err)
			}

			// each unit's ticket generation is an independent retryable
			// step; failures mark the participant for redelivery
			if err := s.renderAndDeliver(ctx, event, item, participant); err != nil {
				log.Printf("%v", &apperr.RenderError{ParticipantID: participant.ID, Err: err})
				if markErr := s.participantRepo.MarkRenderFailed(ctx, participant.ID); markErr != nil {
					log.Printf("mark render failed for %s: %v", participant.ID, markErr)
				}
				continue
			}
			if err := s.participantRepo.MarkTicketSent(ctx, participant.ID); err != nil {
				log.Printf("mark ticket sent for %s: %v", participant.ID, err)
			}
		}
	}

	return nil
}

func (s *fulfillmentServiceImpl) renderAndDeliver(ctx context.Context, event *model.Event, item *model.OrderItem, participant *model.Participant) error {
	job := &model.PrintJob{
		ParticipantID: participant.ID,
		Format:        FormatHTML,
		Copies:        1,
	}
	if err := s.printJobRepo.Create(ctx, job); err != nil {
		return fmt.Errorf("create print job: %w", err)
	}

	doc, err := s.resolveDocument(ctx, event, &item.TicketTypeID, s.variables(event, item, participant))
	if err != nil {
		_ = s.printJobRepo.Fail(ctx, job.ID, err.Error())
		return err
	}

	html, err := render.EncodeHTML(doc)
	if err != nil {
		_ = s.printJobRepo.Fail(ctx, job.ID, err.Error())
		return fmt.Errorf("encode ticket markup: %w", err)
	}
	if err := s.printJobRepo.Complete(ctx, job.ID, int64(len(html))); err != nil {
		log.Printf("complete print job %d: %v", job.ID, err)
	}

	subject := fmt.Sprintf("Your ticket for %s", event.Name)
	if err := s.mailer.Send(ctx, participant.Email, subject, html); err != nil {
		// delivery is fire-and-forget; the transport owns retries
		log.Printf("mail handoff for participant %s: %v", participant.ID, err)
	}
	return nil
}

func (s *fulfillmentServiceImpl) RenderPass(ctx context.Context, token, format string) ([]byte, string, error) {
	participant, err := s.participantRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, "", err
	}
	event, err := s.eventRepo.FindByID(ctx, participant.EventID)
	if err != nil {
		return nil, "", fmt.Errorf("load event: %w", err)
	}

	items, err := s.orderRepo.GetOrderItems(ctx, s.db, participant.OrderID)
	if err != nil {
		return nil, "", fmt.Errorf("get order items: %w", err)
	}
	var item *model.OrderItem
	for _, it := range items {
		if it.ID == participant.OrderItemID {
			item = it
			break
		}
	}
	if item == nil {
		return nil, "", fmt.Errorf("order item for participant %s not found", participant.ID)
	}

	doc, err := s.resolveDocument(ctx, event, &item.TicketTypeID, s.variables(event, item, participant))
	if err != nil {
		return nil, "", err
	}

	job := &model.PrintJob{
		ParticipantID: participant.ID,
		Format:        format,
		Copies:        1,
	}
	if err := s.printJobRepo.Create(ctx, job); err != nil {
		return nil, "", fmt.Errorf("create print job: %w", err)
	}

	var out []byte
	var contentType string
	switch format {
	case FormatHTML:
		out, err = render.EncodeHTML(doc)
		contentType = "text/html; charset=utf-8"
	case FormatPDF:
		out, err = render.EncodePDF(doc)
		contentType = "application/pdf"
	case FormatESCPOS:
		out, err = render.EncodeESCPOS(doc)
		contentType = "application/octet-stream"
	default:
		err = apperr.Validation("format", "must be html, pdf or escpos")
	}
	if err != nil {
		_ = s.printJobRepo.Fail(ctx, job.ID, err.Error())
		return nil, "", err
	}

	if err := s.printJobRepo.Complete(ctx, job.ID, int64(len(out))); err != nil {
		log.Printf("complete print job %d: %v", job.ID, err)
	}
	return out, contentType, nil
}

func (s *fulfillmentServiceImpl) GetTicket(ctx context.Context, token string) (*model.Participant, error) {
	return s.participantRepo.FindByToken(ctx, token)
}

func (s *fulfillmentServiceImpl) CheckIn(ctx context.Context, token string) (*model.Participant, bool, error) {
	participant, err := s.participantRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, false, err
	}

	first, err := s.participantRepo.CheckIn(ctx, participant.ID, time.Now())
	if err != nil {
		return nil, false, fmt.Errorf("check in participant: %w", err)
	}

	participant, err = s.participantRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, false, err
	}
	return participant, first, nil
}

// resolveDocument picks the template (ticket-type default, then event
// default, then the built-in layout) and resolves it against the variables.
func (s *fulfillmentServiceImpl) resolveDocument(ctx context.Context, event *model.Event, ticketTypeID *string, vars map[string]string) (*render.Document, error) {
	schema := render.BuiltinSchema()
	styles := &render.Styles{}
	settings, _ := render.ParseSettings("")

	tpl, err := s.templateRepo.FindDefault(ctx, event.ID, ticketTypeID)
	switch {
	case err == nil:
		schema, err = render.ParseSchema(tpl.Schema)
		if err != nil {
			return nil, err
		}
		styles, err = render.ParseStyles(tpl.Styles)
		if err != nil {
			return nil, err
		}
		settings, err = render.ParseSettings(tpl.Settings)
		if err != nil {
			return nil, err
		}
	case errors.Is(err, apperr.ErrNotFound):
		// no default template configured: the builtin layout stands in
	default:
		return nil, fmt.Errorf("load default template: %w", err)
	}

	return render.Resolve(schema, styles, settings, vars), nil
}

func (s *fulfillmentServiceImpl) variables(event *model.Event, item *model.OrderItem, participant *model.Participant) map[string]string {
	return map[string]string{
		"event_name":        event.Name,
		"event_venue":       event.Venue,
		"participant_name":  participant.Name,
		"participant_email": participant.Email,
		"ticket_type":       item.TicketTypeName,
		"ticket_token":      participant.Token,
		"order_id":          participant.OrderID,
		"checkin_url":       s.checkinURL(event, participant.Token),
	}
}

func (s *fulfillmentServiceImpl) checkinURL(event *model.Event, token string) string {
	base := event.CheckinBaseURL
	if base == "" {
		base = s.baseURL + "/checkin"
	}
	return strings.TrimRight(base, "/") + "/" + token
}

// newTicketToken returns a 256-bit random hex token; it is the only
// credential needed to fetch or check in a ticket, so it must stay
// unguessable.
func newTicketToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(b)
}
