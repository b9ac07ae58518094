package handlers

import (
	"net/http"

	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/ark-network/giveaway/internal/infrastructure/ledger"
	"github.com/ark-network/giveaway/internal/interface/http/middleware"
	"github.com/gin-gonic/gin"
)

// ledgerHandler exposes the in-process ledger for local setups, where no
// external token contract can fund or approve accounts.
type ledgerHandler struct {
	ledger       *ledger.Ledger
	adminAddress string
}

func NewLedgerHandler(book *ledger.Ledger, adminAddress string) (*ledgerHandler, error) {
	addr, err := domain.NormalizeAddress(adminAddress)
	if err != nil {
		return nil, err
	}
	return &ledgerHandler{book, addr}, nil
}

func (h *ledgerHandler) Mint(c *gin.Context) {
	if middleware.Caller(c) != h.adminAddress {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	if err := h.ledger.Mint(c.Request.Context(), req.Token, req.To, req.Amount); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": req.Token, "to": req.To, "amount": req.Amount})
}

func (h *ledgerHandler) Approve(c *gin.Context) {
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	if err := h.ledger.Approve(
		c.Request.Context(), req.Token, middleware.Caller(c), req.Spender, req.Amount,
	); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": req.Token, "spender": req.Spender, "amount": req.Amount,
	})
}

func (h *ledgerHandler) GetBalance(c *gin.Context) {
	var query balanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		writeBadRequest(c, err)
		return
	}

	balance, err := h.ledger.BalanceOf(c.Request.Context(), query.Token, query.Owner)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": query.Token, "owner": query.Owner, "balance": balance,
	})
}
