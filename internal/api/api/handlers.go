package api

import (
	"fmt"
	"time"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"dramclub/cmd/middleware"
	"dramclub/internal/dto"
	"dramclub/internal/model"
	"dramclub/internal/service"
	"dramclub/pkg/validator"
)

type handler struct {
	r *Routers
}

// bind decodes and validates the JSON body, writing a 400 on failure.
func bind(c *ginext.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		dto.BadResponseError(c, dto.FieldIncorrect, "Invalid JSON format")
		return false
	}
	if verr := validator.Validate(c.Request.Context(), req); verr != nil {
		dto.BadResponseError(c, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return false
	}
	return true
}

func fail(c *ginext.Context, err error, msg string) {
	if !dto.DomainError(c, err) {
		zlog.Logger.Error().Err(err).Str("path", c.FullPath()).Msg(msg)
	}
}

func (h *handler) listUpcomingEvents(c *ginext.Context) {
	events, err := h.r.Catalog.ListUpcoming(c.Request.Context())
	if err != nil {
		fail(c, err, "failed to list events")
		return
	}
	dto.SuccessResponse(c, events)
}

func (h *handler) getEvent(c *ginext.Context) {
	ev, err := h.r.Catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err, "failed to get event")
		return
	}
	dto.SuccessResponse(c, ev)
}

type registerResponse struct {
	Registration *model.Registration      `json:"registration"`
	Payment      *dto.PaymentInstructions `json:"payment,omitempty"`
}

func (h *handler) register(c *ginext.Context) {
	var req dto.RegisterRequest
	if !bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	reg, err := h.r.Registrar.Register(ctx, service.RegisterInput{
		EventID:       c.Param("id"),
		FullName:      req.FullName,
		Email:         req.Email,
		Phone:         req.Phone,
		TicketCount:   req.TicketCount,
		PaymentMethod: model.PaymentMethod(req.PaymentMethod),
		PaymentCode:   req.PaymentCode,
		BroughtFriend: req.BroughtFriend,
	})
	if err != nil {
		fail(c, err, "failed to register")
		return
	}

	resp := registerResponse{Registration: reg}
	if reg.PaymentStatus == model.PaymentPending {
		if receipt, err := h.r.Registrar.Receipt(ctx, reg.ID); err == nil {
			resp.Payment = h.instructions(receipt.TotalAmount, reg.PaymentMethod, receipt.Memo)
		}
	}
	dto.SuccessCreatedResponse(c, resp)
}

func (h *handler) instructions(amount int, method model.PaymentMethod, memo string) *dto.PaymentInstructions {
	return &dto.PaymentInstructions{
		Amount: amount,
		Method: string(method),
		Payee:  h.r.Payees[string(method)],
		Memo:   memo,
	}
}

func (h *handler) getReceipt(c *ginext.Context) {
	receipt, err := h.r.Registrar.Receipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err, "failed to get registration")
		return
	}
	dto.SuccessResponse(c, receipt)
}

func (h *handler) checkMembership(c *ginext.Context) {
	check, err := h.r.Ledger.Check(c.Request.Context(), c.Query("email"))
	if err != nil {
		fail(c, err, "failed to check membership")
		return
	}
	dto.SuccessResponse(c, check)
}

type purchaseResponse struct {
	Membership *model.Membership        `json:"membership"`
	Payment    *dto.PaymentInstructions `json:"payment,omitempty"`
}

func (h *handler) purchaseMembership(c *ginext.Context) {
	var req dto.PurchaseMembershipRequest
	if !bind(c, &req) {
		return
	}
	p, err := h.r.Ledger.Create(c.Request.Context(), service.PurchaseInput{
		FullName:      req.FullName,
		Email:         req.Email,
		Phone:         req.Phone,
		PaymentMethod: model.PaymentMethod(req.PaymentMethod),
		PaymentCode:   req.PaymentCode,
	})
	if err != nil {
		fail(c, err, "failed to purchase membership")
		return
	}
	resp := purchaseResponse{Membership: p.Membership}
	if p.Membership.PaymentStatus == model.PaymentPending {
		resp.Payment = h.instructions(p.Amount, p.Membership.PaymentMethod, p.Memo)
	}
	dto.SuccessCreatedResponse(c, resp)
}

func (h *handler) getMembership(c *ginext.Context) {
	p, err := h.r.Ledger.Receipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err, "failed to get membership")
		return
	}
	dto.SuccessResponse(c, purchaseResponse{
		Membership: p.Membership,
		Payment:    h.instructions(p.Amount, p.Membership.PaymentMethod, p.Memo),
	})
}

func (h *handler) login(c *ginext.Context) {
	var req dto.LoginRequest
	if !bind(c, &req) {
		return
	}
	session, err := h.r.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if dto.IsUnauthorized(err) {
			dto.UnauthorizedError(c)
			return
		}
		fail(c, err, "failed to log in")
		return
	}
	dto.SuccessResponse(c, session)
}

func (h *handler) listAllEvents(c *ginext.Context) {
	events, err := h.r.Catalog.ListAll(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		fail(c, err, "failed to list events")
		return
	}
	dto.SuccessResponse(c, events)
}

func eventInput(req dto.EventRequest) (service.EventInput, error) {
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		return service.EventInput{}, err
	}
	return service.EventInput{
		Title:         req.Title,
		Description:   req.Description,
		Date:          date,
		StartTime:     req.StartTime,
		Price:         req.Price,
		MaxSeats:      req.MaxSeats,
		FeaturedImage: req.FeaturedImage,
	}, nil
}

func (h *handler) createEvent(c *ginext.Context) {
	var req dto.EventRequest
	if !bind(c, &req) {
		return
	}
	in, err := eventInput(req)
	if err != nil {
		dto.FieldBadFormatError(c, "date")
		return
	}
	ev, err := h.r.Catalog.Create(c.Request.Context(), middleware.Actor(c), in)
	if err != nil {
		fail(c, err, "failed to create event")
		return
	}
	dto.SuccessCreatedResponse(c, ev)
}

func (h *handler) getEventDetails(c *ginext.Context) {
	details, err := h.r.Catalog.GetDetails(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		fail(c, err, "failed to get event details")
		return
	}
	dto.SuccessResponse(c, details)
}

func (h *handler) updateEvent(c *ginext.Context) {
	var req dto.EventRequest
	if !bind(c, &req) {
		return
	}
	in, err := eventInput(req)
	if err != nil {
		dto.FieldBadFormatError(c, "date")
		return
	}
	ev, err := h.r.Catalog.Update(c.Request.Context(), middleware.Actor(c), c.Param("id"), in)
	if err != nil {
		fail(c, err, "failed to update event")
		return
	}
	dto.SuccessResponse(c, ev)
}

func (h *handler) deleteEvent(c *ginext.Context) {
	if err := h.r.Catalog.Delete(c.Request.Context(), middleware.Actor(c), c.Param("id")); err != nil {
		fail(c, err, "failed to delete event")
		return
	}
	dto.SuccessResponse(c, nil)
}

func (h *handler) listRegistrations(c *ginext.Context) {
	regs, err := h.r.Registrar.ListByEvent(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		fail(c, err, "failed to list registrations")
		return
	}
	dto.SuccessResponse(c, regs)
}

func (h *handler) setRegistrationPaymentStatus(c *ginext.Context) {
	var req dto.PaymentStatusRequest
	if !bind(c, &req) {
		return
	}
	reg, err := h.r.Payments.SetRegistrationPaymentStatus(c.Request.Context(), middleware.Actor(c),
		c.Param("id"), model.PaymentStatus(req.Status))
	if err != nil {
		fail(c, err, "failed to update registration payment status")
		return
	}
	dto.SuccessResponse(c, reg)
}

func (h *handler) deleteRegistration(c *ginext.Context) {
	if err := h.r.Registrar.Delete(c.Request.Context(), middleware.Actor(c), c.Param("id")); err != nil {
		fail(c, err, "failed to delete registration")
		return
	}
	dto.SuccessResponse(c, nil)
}

func (h *handler) listMemberships(c *ginext.Context) {
	ms, err := h.r.Ledger.List(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		fail(c, err, "failed to list memberships")
		return
	}
	dto.SuccessResponse(c, ms)
}

func (h *handler) setMembershipPaymentStatus(c *ginext.Context) {
	var req dto.PaymentStatusRequest
	if !bind(c, &req) {
		return
	}
	m, err := h.r.Payments.SetMembershipPaymentStatus(c.Request.Context(), middleware.Actor(c),
		c.Param("id"), model.PaymentStatus(req.Status))
	if err != nil {
		fail(c, err, "failed to update membership payment status")
		return
	}
	dto.SuccessResponse(c, m)
}

func (h *handler) deleteMembership(c *ginext.Context) {
	if err := h.r.Ledger.Delete(c.Request.Context(), middleware.Actor(c), c.Param("id")); err != nil {
		fail(c, err, "failed to delete membership")
		return
	}
	dto.SuccessResponse(c, nil)
}

func (h *handler) listUsers(c *ginext.Context) {
	users, err := h.r.Accounts.ListUsers(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		fail(c, err, "failed to list users")
		return
	}
	dto.SuccessResponse(c, users)
}

func (h *handler) createUser(c *ginext.Context) {
	var req dto.CreateUserRequest
	if !bind(c, &req) {
		return
	}
	p, err := h.r.Accounts.CreateUser(c.Request.Context(), middleware.Actor(c), service.UserInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     model.Role(req.Role),
	})
	if err != nil {
		fail(c, err, "failed to create user")
		return
	}
	dto.SuccessCreatedResponse(c, p)
}

func (h *handler) updateUserRole(c *ginext.Context) {
	var req dto.UpdateRoleRequest
	if !bind(c, &req) {
		return
	}
	if err := h.r.Accounts.UpdateRole(c.Request.Context(), middleware.Actor(c), c.Param("id"), model.Role(req.Role)); err != nil {
		fail(c, err, "failed to update user role")
		return
	}
	dto.SuccessResponse(c, nil)
}
