package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stocktrackerst/stock-tracker/internal/auth"
	"github.com/stocktrackerst/stock-tracker/internal/ledger"
	"github.com/stocktrackerst/stock-tracker/internal/ledger/dto"
	"github.com/stocktrackerst/stock-tracker/internal/ledger/watch"
	"github.com/stocktrackerst/stock-tracker/internal/model"
	"github.com/stocktrackerst/stock-tracker/pkg/logger"
)

type LedgerHandler struct {
	uc     ledger.UseCase
	hub    *watch.Hub
	logger logger.ZapLogger
}

func NewLedgerHandler(uc ledger.UseCase, hub *watch.Hub, log logger.ZapLogger) *LedgerHandler {
	return &LedgerHandler{
		uc:     uc,
		hub:    hub,
		logger: log,
	}
}

func (h *LedgerHandler) RegisterRoutes(r *gin.Engine, authMW gin.HandlerFunc) {
	v1 := r.Group("/v1", authMW)
	{
		v1.POST("/movements/order", h.Order)
		v1.POST("/movements/receive", h.Receive)
		v1.POST("/movements/book", h.Book)
		v1.POST("/movements/dispatch", h.Dispatch)
		v1.GET("/movements", h.ListMovements)
		v1.GET("/balances", h.ListBalances)
		v1.GET("/balances/:model", h.GetBalance)
		v1.GET("/balances/stream", h.StreamBalances)
	}
}

type orderRequest struct {
	Model     string `json:"model"`
	Category  string `json:"category"`
	Quantity  int64  `json:"quantity"`
	Supplier  string `json:"supplier"`
	BillNo    string `json:"billNo"`
	OrderedBy string `json:"orderedBy"`
	Date      string `json:"date"`
	Remarks   string `json:"remarks"`
}

type receiveRequest struct {
	Model      string `json:"model"`
	Category   string `json:"category"`
	Quantity   int64  `json:"quantity"`
	OrderedQty *int64 `json:"orderedQty"`
	ReceivedBy string `json:"receivedBy"`
	Date       string `json:"date"`
	Remarks    string `json:"remarks"`
}

type bookRequest struct {
	Model        string `json:"model"`
	Category     string `json:"category"`
	Quantity     int64  `json:"quantity"`
	Status       string `json:"status"`
	CustomerName string `json:"customerName"`
	BookingID    string `json:"bookingId"`
	EnteredBy    string `json:"enteredBy"`
	DueDate      string `json:"dueDate"`
	Remarks      string `json:"remarks"`
}

type dispatchRequest struct {
	Model           string `json:"model"`
	Category        string `json:"category"`
	Quantity        int64  `json:"quantity"`
	CustomerName    string `json:"customerName"`
	DispatchID      string `json:"dispatchId"`
	DispatchedBy    string `json:"dispatchedBy"`
	LinkedBookingID string `json:"linkedBookingId"`
	Date            string `json:"date"`
	Remarks         string `json:"remarks"`
}

type balanceResponse struct {
	Model       string    `json:"model"`
	Category    string    `json:"category"`
	Opening     int64     `json:"opening"`
	Ordered     int64     `json:"ordered"`
	Delivered   int64     `json:"delivered"`
	Booked      int64     `json:"booked"`
	Dispatched  int64     `json:"dispatched"`
	Available   int64     `json:"available"`
	LastUpdated time.Time `json:"lastUpdated"`
}

func toBalanceResponse(b *model.BalanceRecord) balanceResponse {
	return balanceResponse{
		Model:       b.Model,
		Category:    b.Category,
		Opening:     b.Opening,
		Ordered:     b.Ordered,
		Delivered:   b.Delivered,
		Booked:      b.Booked,
		Dispatched:  b.Dispatched,
		Available:   b.AvailableQty(),
		LastUpdated: b.LastUpdated,
	}
}

func toBalanceResponses(records []model.BalanceRecord) []balanceResponse {
	out := make([]balanceResponse, len(records))
	for i := range records {
		out[i] = toBalanceResponse(&records[i])
	}
	return out
}

// respondError maps domain errors onto HTTP statuses: bad input is the
// caller's to fix, everything else is a store-side failure.
func (h *LedgerHandler) respondError(c *gin.Context, err error) {
	if ledger.IsValidation(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error("movement failed",
		zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func tenantOrAbort(c *gin.Context) (string, bool) {
	tenantID := auth.TenantID(c)
	if tenantID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing tenant context"})
		return "", false
	}
	return tenantID, true
}

func (h *LedgerHandler) Order(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	bal, err := h.uc.Order(c.Request.Context(), &dto.OrderInput{
		TenantID:  tenantID,
		Model:     req.Model,
		Category:  req.Category,
		Quantity:  req.Quantity,
		Supplier:  req.Supplier,
		BillNo:    req.BillNo,
		OrderedBy: req.OrderedBy,
		Date:      req.Date,
		Remarks:   req.Remarks,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": toBalanceResponse(bal)})
}

func (h *LedgerHandler) Receive(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	var req receiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	bal, err := h.uc.Receive(c.Request.Context(), &dto.ReceiveInput{
		TenantID:   tenantID,
		Model:      req.Model,
		Category:   req.Category,
		Quantity:   req.Quantity,
		OrderedQty: req.OrderedQty,
		ReceivedBy: req.ReceivedBy,
		Date:       req.Date,
		Remarks:    req.Remarks,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": toBalanceResponse(bal)})
}

func (h *LedgerHandler) Book(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	bal, err := h.uc.Book(c.Request.Context(), &dto.BookInput{
		TenantID:     tenantID,
		Model:        req.Model,
		Category:     req.Category,
		Quantity:     req.Quantity,
		Status:       req.Status,
		CustomerName: req.CustomerName,
		BookingID:    req.BookingID,
		EnteredBy:    req.EnteredBy,
		DueDate:      req.DueDate,
		Remarks:      req.Remarks,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": toBalanceResponse(bal)})
}

func (h *LedgerHandler) Dispatch(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	bal, err := h.uc.Dispatch(c.Request.Context(), &dto.DispatchInput{
		TenantID:        tenantID,
		Model:           req.Model,
		Category:        req.Category,
		Quantity:        req.Quantity,
		CustomerName:    req.CustomerName,
		DispatchID:      req.DispatchID,
		DispatchedBy:    req.DispatchedBy,
		LinkedBookingID: req.LinkedBookingID,
		Date:            req.Date,
		Remarks:         req.Remarks,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": toBalanceResponse(bal)})
}

func (h *LedgerHandler) ListBalances(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	records, err := h.uc.ListBalances(c.Request.Context(), tenantID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balances": toBalanceResponses(records)})
}

func (h *LedgerHandler) GetBalance(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	bal, err := h.uc.GetBalance(c.Request.Context(), tenantID, c.Param("model"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": toBalanceResponse(bal)})
}

func (h *LedgerHandler) ListMovements(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	movements, total, err := h.uc.ListMovements(c.Request.Context(), &dto.MovementFilters{
		TenantID:     tenantID,
		Model:        c.Query("model"),
		MovementType: c.Query("type"),
		Page:         page,
		PageSize:     pageSize,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"movements": movements, "total": total})
}

// StreamBalances pushes the tenant's balance list over SSE: the current
// snapshot on connect, then a fresh one after every movement. Closing the
// connection releases the subscription.
func (h *LedgerHandler) StreamBalances(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	ch, cancel, err := h.hub.Subscribe(c.Request.Context(), tenantID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		snapshot, open := <-ch
		if !open {
			return false
		}
		c.SSEvent("balances", toBalanceResponses(snapshot))
		return true
	})
}
