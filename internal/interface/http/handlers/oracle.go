package handlers

import (
	"fmt"
	"net/http"

	"github.com/ark-network/giveaway/internal/core/application"
	"github.com/ark-network/giveaway/internal/core/ports"
	"github.com/ark-network/giveaway/internal/interface/http/middleware"
	"github.com/gin-gonic/gin"
)

type oracleHandler struct {
	svc application.Service
}

func NewOracleHandler(svc application.Service) *oracleHandler {
	return &oracleHandler{svc}
}

// Fulfill is the callback a remote oracle uses to deliver randomness.
func (h *oracleHandler) Fulfill(c *gin.Context) {
	var req fulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}
	randomValue, err := decodeHex(req.RandomValue)
	if err != nil {
		writeBadRequest(c, fmt.Errorf("invalid random value: %s", err))
		return
	}
	proof, err := decodeHex(req.Proof)
	if err != nil {
		writeBadRequest(c, fmt.Errorf("invalid proof: %s", err))
		return
	}

	if err := h.svc.FulfillRandomness(
		c.Request.Context(), middleware.Caller(c), ports.Fulfillment{
			RequestId:   req.RequestId,
			RandomValue: randomValue,
			Proof:       proof,
		},
	); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request_id": req.RequestId})
}
