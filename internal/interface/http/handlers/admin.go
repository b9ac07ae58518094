package handlers

import (
	"net/http"

	"github.com/ark-network/giveaway/internal/core/application"
	"github.com/ark-network/giveaway/internal/interface/http/middleware"
	"github.com/gin-gonic/gin"
)

type adminHandler struct {
	adminSvc application.AdminService
}

func NewAdminHandler(adminSvc application.AdminService) *adminHandler {
	return &adminHandler{adminSvc}
}

func (h *adminHandler) CreateRound(c *gin.Context) {
	var req createRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	roundId, err := h.adminSvc.CreateRound(
		c.Request.Context(), middleware.Caller(c), req.Deadline, req.Description,
	)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": roundId})
}

func (h *adminHandler) SetAllowedToken(c *gin.Context) {
	var req setTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	if err := h.adminSvc.SetAllowedToken(
		c.Request.Context(), middleware.Caller(c), req.Token, req.Allowed,
	); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": req.Token, "allowed": req.Allowed})
}

func (h *adminHandler) ListAllowedTokens(c *gin.Context) {
	tokens, err := h.adminSvc.ListAllowedTokens(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		writeError(c, err)
		return
	}

	list := make([]allowedToken, 0, len(tokens))
	for _, t := range tokens {
		list = append(list, allowedToken{t.Token, t.Allowed, t.UpdatedAt})
	}
	c.JSON(http.StatusOK, gin.H{"tokens": list})
}

func (h *adminHandler) ListRounds(c *gin.Context) {
	rounds, err := h.adminSvc.ListRounds(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		writeError(c, err)
		return
	}

	list := make([]roundInfo, 0, len(rounds))
	for i := range rounds {
		list = append(list, toRoundInfo(&rounds[i]))
	}
	c.JSON(http.StatusOK, gin.H{"rounds": list})
}

func (h *adminHandler) WithdrawTreasury(c *gin.Context) {
	roundId, err := parseRoundId(c)
	if err != nil {
		writeBadRequest(c, err)
		return
	}
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	sent, err := h.adminSvc.WithdrawTreasury(
		c.Request.Context(), middleware.Caller(c), roundId, req.To,
	)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}

func (h *adminHandler) CloseEmptyRound(c *gin.Context) {
	roundId, err := parseRoundId(c)
	if err != nil {
		writeBadRequest(c, err)
		return
	}

	if err := h.adminSvc.CloseEmptyRound(
		c.Request.Context(), middleware.Caller(c), roundId,
	); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": roundId})
}

func (h *adminHandler) RetryPrizeDelivery(c *gin.Context) {
	roundId, err := parseRoundId(c)
	if err != nil {
		writeBadRequest(c, err)
		return
	}

	results, err := h.adminSvc.RetryPrizeDelivery(
		c.Request.Context(), middleware.Caller(c), roundId,
	)
	if err != nil {
		writeError(c, err)
		return
	}

	list := make([]deliveryResult, 0, len(results))
	for _, r := range results {
		list = append(list, deliveryResult{r.Tier.String(), r.Recipient, r.ItemId, r.Err})
	}
	c.JSON(http.StatusOK, gin.H{"deliveries": list})
}
