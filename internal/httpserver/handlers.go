package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"tienda-b2b/internal/domain"
	"tienda-b2b/internal/remote"
	ordersvc "tienda-b2b/internal/service/order"
)

type handlers struct {
	deps   Deps
	logger *log.Entry
}

type addItemRequest struct {
	VariantID int64 `json:"variantId" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type checkoutRequest struct {
	CustomerID  int64  `json:"customerId" binding:"required"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

type advanceRequest struct {
	Status string `json:"status" binding:"required"`
}

// targetStatus maps the status names accepted by the status endpoint.
// Cancelling an order sends it back to pending.
func targetStatus(name string) domain.Status {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "delivered", "confirmed":
		return domain.StatusDelivered
	case "cancelled", "canceled", "pending":
		return domain.StatusPending
	default:
		return domain.Status(name)
	}
}

func (h *handlers) getCart(c *gin.Context) {
	cart := cartFrom(c)
	c.JSON(http.StatusOK, toCartResponse(cart.SessionKey(), cart.Snapshot()))
}

func (h *handlers) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart := cartFrom(c)
	if _, err := cart.AddItem(c.Request.Context(), req.VariantID, req.Quantity); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCartResponse(cart.SessionKey(), cart.Snapshot()))
}

func (h *handlers) updateItem(c *gin.Context) {
	lineID, ok := intParam(c, "lineId")
	if !ok {
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart := cartFrom(c)
	if err := cart.UpdateQuantity(c.Request.Context(), lineID, *req.Quantity); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart.SessionKey(), cart.Snapshot()))
}

func (h *handlers) removeItem(c *gin.Context) {
	lineID, ok := intParam(c, "lineId")
	if !ok {
		return
	}
	cart := cartFrom(c)
	if err := cart.RemoveItem(c.Request.Context(), lineID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart.SessionKey(), cart.Snapshot()))
}

func (h *handlers) clearCart(c *gin.Context) {
	cart := cartFrom(c)
	if err := cart.Clear(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart.SessionKey(), cart.Snapshot()))
}

func (h *handlers) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	submit := ordersvc.SubmitRequest{CustomerID: req.CustomerID}
	if req.DisplayName != "" || req.Email != "" {
		info := &domain.CustomerInfo{ID: &req.CustomerID}
		if req.DisplayName != "" {
			info.DisplayName = &req.DisplayName
		}
		if req.Email != "" {
			info.Email = &req.Email
		}
		submit.Customer = info
	}

	sub, err := h.deps.Submitter.Submit(c.Request.Context(), cartFrom(c), submit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	status := http.StatusCreated
	if sub.Local() {
		status = http.StatusAccepted
	}
	c.JSON(status, toSubmissionResponse(sub))
}

func (h *handlers) listOrders(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.Query("customerId"), 10, 64)
	if err != nil || customerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "customerId query parameter is required"})
		return
	}
	orders := h.deps.Lifecycle.List(c.Request.Context(), customerID)
	c.JSON(http.StatusOK, gin.H{"orders": toOrderList(orders)})
}

func (h *handlers) getOrder(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	o, err := h.deps.Lifecycle.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*o))
}

func (h *handlers) confirmOrder(c *gin.Context) {
	h.transition(c, domain.StatusDelivered)
}

func (h *handlers) cancelOrder(c *gin.Context) {
	h.transition(c, domain.StatusPending)
}

func (h *handlers) advanceOrder(c *gin.Context) {
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.transition(c, targetStatus(req.Status))
}

func (h *handlers) transition(c *gin.Context, target domain.Status) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	if err := h.deps.Lifecycle.Advance(c.Request.Context(), id, target); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": target})
}

// writeError maps domain errors to HTTP statuses.
func (h *handlers) writeError(c *gin.Context, err error) {
	var remoteErr *remote.RemoteError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrVariantNotFound), errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidOrderReference),
		errors.Is(err, domain.ErrUnsupportedStatus):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrEmptyCart), errors.Is(err, domain.ErrCheckoutInProgress):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrCartUnavailable):
		status = http.StatusServiceUnavailable
	case errors.As(err, &remoteErr):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

// orderIDParam accepts negative ids so the lifecycle can reject them.
func orderIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return 0, false
	}
	return id, true
}
