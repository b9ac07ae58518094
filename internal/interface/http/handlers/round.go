package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ark-network/giveaway/internal/core/application"
	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/ark-network/giveaway/internal/interface/http/middleware"
	"github.com/gin-gonic/gin"
)

type roundHandler struct {
	svc application.Service
}

func NewRoundHandler(svc application.Service) *roundHandler {
	return &roundHandler{svc}
}

func (h *roundHandler) GetInfo(c *gin.Context) {
	info, err := h.svc.GetInfo(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toServiceInfo(info))
}

func (h *roundHandler) GetLatestRound(c *gin.Context) {
	round, err := h.svc.GetLatestRound(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if round == nil {
		writeError(c, fmt.Errorf("%w: no round created yet", domain.ErrRoundNotFound))
		return
	}
	c.JSON(http.StatusOK, toRoundInfo(round))
}

func (h *roundHandler) GetRound(c *gin.Context) {
	roundId, err := parseRoundId(c)
	if err != nil {
		writeBadRequest(c, err)
		return
	}

	round, err := h.svc.GetRound(c.Request.Context(), roundId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRoundInfo(round))
}

func (h *roundHandler) IsTokenAllowed(c *gin.Context) {
	token := c.Param("address")
	allowed, err := h.svc.IsTokenAllowed(c.Request.Context(), token)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "allowed": allowed})
}

func (h *roundHandler) Participate(c *gin.Context) {
	var req participateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	e, err := h.svc.Participate(
		c.Request.Context(), middleware.Caller(c), req.Token, req.Amount,
	)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry{e.Index, e.Participant, e.Token, e.Amount})
}

func (h *roundHandler) RequestDraw(c *gin.Context) {
	roundId, err := parseRoundId(c)
	if err != nil {
		writeBadRequest(c, err)
		return
	}

	requestId, err := h.svc.CloseAndRequestDraw(
		c.Request.Context(), middleware.Caller(c), roundId,
	)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request_id": requestId})
}

func parseRoundId(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid round id %s", c.Param("id"))
	}
	return id, nil
}
