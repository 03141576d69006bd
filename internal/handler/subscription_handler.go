package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edustack/edustack-api/internal/service"
	appErrors "github.com/edustack/edustack-api/pkg/errors"
	"github.com/edustack/edustack-api/pkg/response"
)

// SubscriptionHandler handles the superadmin subscription endpoints.
type SubscriptionHandler struct {
	service *service.SubscriptionService
}

// NewSubscriptionHandler constructs a subscription handler.
func NewSubscriptionHandler(svc *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: svc}
}

// List godoc
// @Summary List subscriptions
// @Tags Subscriptions
// @Produce json
// @Param school_id query string false "Filter by school"
// @Param page query int false "Page"
// @Success 200 {object} response.Envelope
// @Router /superadmin/subscriptions [get]
func (h *SubscriptionHandler) List(c *gin.Context) {
	subs, pagination, err := h.service.List(c.Request.Context(), c.Query("school_id"), pageFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subs, pagination)
}

// Assign godoc
// @Summary Assign a subscription to a school
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param payload body service.AssignSubscriptionRequest true "Subscription payload"
// @Success 201 {object} response.Envelope
// @Router /superadmin/schools/{id}/subscriptions [post]
func (h *SubscriptionHandler) Assign(c *gin.Context) {
	var req service.AssignSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	sub, err := h.service.Assign(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}

// Renew godoc
// @Summary Renew a subscription
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param id path string true "Subscription ID"
// @Param payload body service.RenewSubscriptionRequest true "Renewal payload"
// @Success 200 {object} response.Envelope
// @Router /superadmin/subscriptions/{id}/renew [post]
func (h *SubscriptionHandler) Renew(c *gin.Context) {
	var req service.RenewSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	sub, err := h.service.Renew(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// ListExpired godoc
// @Summary List lapsed active subscriptions
// @Tags Subscriptions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /superadmin/subscriptions/expired [get]
func (h *SubscriptionHandler) ListExpired(c *gin.Context) {
	subs, err := h.service.ListExpired(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subs, nil)
}
