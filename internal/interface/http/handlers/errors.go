package handlers

import (
	"errors"
	"net/http"

	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/ark-network/giveaway/internal/infrastructure/ledger"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

var statusByKind = map[domain.ErrorKind]int{
	domain.KindUnauthorized:    http.StatusForbidden,
	domain.KindInvalidState:    http.StatusConflict,
	domain.KindInvalidInput:    http.StatusBadRequest,
	domain.KindResourceFailure: http.StatusUnprocessableEntity,
	domain.KindEmptyRound:      http.StatusConflict,
	domain.KindNotFound:        http.StatusNotFound,
}

var ledgerErrors = []error{
	ledger.ErrUnknownToken,
	ledger.ErrInsufficientBalance,
	ledger.ErrInsufficientAllowance,
	ledger.ErrBalanceOverflow,
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	code := domain.CodeOf(err)
	if len(code) <= 0 {
		code = kind.String()
	}

	for _, ledgerErr := range ledgerErrors {
		if errors.Is(err, ledgerErr) {
			status, code = http.StatusUnprocessableEntity, "LEDGER_ERROR"
			break
		}
	}

	if status == http.StatusInternalServerError {
		log.WithError(err).Errorf("%s %s failed", c.Request.Method, c.Request.URL.Path)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{err.Error(), code})
}

func writeBadRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		err.Error(), domain.KindInvalidInput.String(),
	})
}
