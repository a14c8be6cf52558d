package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/studydeck-backend/internal/http/response"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
	"github.com/yungbote/studydeck-backend/internal/services"
)

type CreditHandler struct {
	log    *logger.Logger
	ledger services.LedgerService
	notify services.JobNotifier
}

func NewCreditHandler(log *logger.Logger, ledger services.LedgerService, notify services.JobNotifier) *CreditHandler {
	return &CreditHandler{
		log:    log.With("handler", "CreditHandler"),
		ledger: ledger,
		notify: notify,
	}
}

// GET /api/credits
func (h *CreditHandler) GetBalance(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	acct, err := h.ledger.EnsureAccount(dbctx.New(c.Request.Context()), userID)
	if err != nil {
		response.RespondServiceError(c, "load_balance_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"account": acct})
}

// GET /api/credits/transactions
func (h *CreditHandler) ListTransactions(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	txns, err := h.ledger.History(dbctx.New(c.Request.Context()), userID, limitQuery(c))
	if err != nil {
		response.RespondServiceError(c, "load_transactions_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"transactions": txns})
}

type giftRequest struct {
	ToUserID string `json:"to_user_id"`
	Amount   int    `json:"amount"`
	Reason   string `json:"reason"`
}

// POST /api/credits/gift
func (h *CreditHandler) Gift(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req giftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	toUserID, err := uuid.Parse(strings.TrimSpace(req.ToUserID))
	if err != nil || toUserID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_recipient", errors.New("to_user_id must be a user id"))
		return
	}
	if req.Amount <= 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_amount", errors.New("amount must be positive"))
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "gift"
	}

	ctx := c.Request.Context()
	balance, err := h.ledger.Transfer(dbctx.New(ctx), userID, toUserID, req.Amount, reason)
	if err != nil {
		response.RespondServiceError(c, "gift_failed", err)
		return
	}
	if h.notify != nil {
		h.notify.CreditsChanged(ctx, userID, balance)
		if acct, err := h.ledger.Balance(dbctx.New(ctx), toUserID); err == nil && acct != nil {
			h.notify.CreditsChanged(ctx, toUserID, acct.Balance)
		}
	}
	response.RespondOK(c, gin.H{"balance": balance})
}
