package api

import (
	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"dramclub/cmd/middleware"
	"dramclub/internal/service"
)

type Routers struct {
	Catalog   *service.Catalog
	Registrar *service.Registrar
	Ledger    *service.Ledger
	Payments  *service.PaymentWorkflow
	Accounts  *service.Accounts
	Tokens    middleware.TokenParser
	// Payees maps a payment method to the payee shown with payment instructions.
	Payees       map[string]string
	AllowOrigins []string
	Mode         string
}

func NewRouters(r *Routers) *ginext.Engine {
	mode := r.Mode
	if mode == "" {
		mode = "release"
	}
	app := ginext.New(mode)

	app.Use(middleware.LoggingMiddleware())
	if len(r.AllowOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = r.AllowOrigins
		corsCfg.AddAllowHeaders("Authorization")
		app.Use(cors.New(corsCfg))
	} else {
		app.Use(cors.Default())
	}

	h := &handler{r: r}
	apiGroup := app.Group("/v1")

	apiGroup.GET("/events", h.listUpcomingEvents)
	apiGroup.GET("/events/:id", h.getEvent)
	apiGroup.POST("/events/:id/register", h.register)
	apiGroup.GET("/registrations/:id", h.getReceipt)
	apiGroup.GET("/memberships/check", h.checkMembership)
	apiGroup.POST("/memberships", h.purchaseMembership)
	apiGroup.GET("/memberships/:id", h.getMembership)
	apiGroup.POST("/auth/login", h.login)

	admin := apiGroup.Group("/admin", middleware.RequireAdmin(r.Tokens, r.Accounts))

	admin.GET("/events", h.listAllEvents)
	admin.POST("/events", h.createEvent)
	admin.GET("/events/:id", h.getEventDetails)
	admin.PUT("/events/:id", h.updateEvent)
	admin.DELETE("/events/:id", h.deleteEvent)
	admin.GET("/events/:id/registrations", h.listRegistrations)

	admin.PATCH("/registrations/:id/payment-status", h.setRegistrationPaymentStatus)
	admin.DELETE("/registrations/:id", h.deleteRegistration)

	admin.GET("/memberships", h.listMemberships)
	admin.PATCH("/memberships/:id/payment-status", h.setMembershipPaymentStatus)
	admin.DELETE("/memberships/:id", h.deleteMembership)

	admin.GET("/users", h.listUsers)
	admin.POST("/users", h.createUser)
	admin.PATCH("/users/:id/role", h.updateUserRole)

	return app
}
