package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/leeveo/inscription-sub004/internal/handler"
	"github.com/leeveo/inscription-sub004/internal/middleware"
	"github.com/leeveo/inscription-sub004/internal/service"
)

type Server struct {
	echo            *echo.Echo
	checkoutHandler *handler.CheckoutHandler
	webhookHandler  *handler.WebhookHandler
	ticketHandler   *handler.TicketHandler
	templateHandler *handler.TemplateHandler
	adminAPIKey     string
}

func NewServer(
	orderService service.OrderService,
	fulfillmentService service.FulfillmentService,
	templateService service.TemplateService,
	adminAPIKey string,
) *Server {
	e := echo.New()

	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	s := &Server{
		echo:            e,
		checkoutHandler: handler.NewCheckoutHandler(orderService),
		webhookHandler:  handler.NewWebhookHandler(orderService),
		ticketHandler:   handler.NewTicketHandler(fulfillmentService),
		templateHandler: handler.NewTemplateHandler(templateService),
		adminAPIKey:     adminAPIKey,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// -------- checkout --------
	api.POST("/checkout", s.checkoutHandler.Checkout)
	api.GET("/orders/:orderID", s.checkoutHandler.GetOrder)

	// -------- gateway webhooks --------
	api.POST("/payline/webhook", s.webhookHandler.PaylineWebhook)

	// -------- tickets --------
	api.GET("/tickets/:token", s.ticketHandler.GetTicket)
	api.POST("/tickets/:token/checkin", s.ticketHandler.CheckIn)
	api.GET("/tickets/:token/pass", s.ticketHandler.Pass)

	// -------- template administration --------
	admin := api.Group("/admin", middleware.AdminKeyMiddleware(s.adminAPIKey))
	admin.GET("/templates", s.templateHandler.ListByEvent)
	admin.POST("/templates", s.templateHandler.Create)
	admin.PUT("/templates/:templateID", s.templateHandler.UpdateLayout)
	admin.PUT("/templates/:templateID/default", s.templateHandler.SetDefault)
	admin.POST("/templates/:templateID/preview", s.templateHandler.Preview)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
