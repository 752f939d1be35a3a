package httpinterface

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ctf-amm/internal/core/application"
	"github.com/tdex-network/ctf-amm/internal/core/domain"
	"github.com/tdex-network/ctf-amm/internal/core/ports"
	"github.com/tdex-network/ctf-amm/internal/infrastructure/pubsub"
	"github.com/tdex-network/ctf-amm/pkg/marketmaking"
	"github.com/tdex-network/ctf-amm/pkg/marketmaking/formula"
	"github.com/tdex-network/ctf-amm/pkg/mathutil"
)

var (
	// ErrInvalidRequest is returned for malformed request bodies or params.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthorized ...
	ErrUnauthorized = errors.New("missing or invalid credentials")
	// ErrInvalidNonce is returned for a signed request whose nonce is not
	// greater than the last one seen for the signer, or too far in time.
	ErrInvalidNonce = errors.New("invalid request nonce")
)

var errorsByStatus = map[int][]error{
	http.StatusBadRequest: {
		ErrInvalidRequest,
		domain.ErrInvalidOutcomeTokenAmounts,
		domain.ErrZeroFundingChange,
		domain.ErrInvalidFee,
		domain.ErrInvalidFunding,
		domain.ErrInvalidOwner,
		application.ErrInvalidCollateralLimit,
		application.ErrInvalidCost,
		application.ErrNegativeFee,
		application.ErrInvalidFaucetAmount,
		marketmaking.ErrInvalidAmountsLength,
		formula.ErrUnknownStrategy,
		pubsub.ErrMissingTopic,
		pubsub.ErrUnknownTopic,
		pubsub.ErrInvalidEndpoint,
	},
	http.StatusUnauthorized: {
		ErrUnauthorized,
		ErrInvalidNonce,
	},
	http.StatusForbidden: {
		domain.ErrNotOwner,
		application.ErrFaucetDisabled,
	},
	http.StatusNotFound: {
		domain.ErrMarketNotFound,
		pubsub.ErrSubscriptionNotFound,
	},
	http.StatusConflict: {
		domain.ErrMarketNotRunning,
		domain.ErrMarketNotPaused,
		domain.ErrMarketClosed,
		domain.ErrMarketAlreadyExists,
		application.ErrReentrantCall,
	},
	http.StatusUnprocessableEntity: {
		application.ErrCollateralLimitExceeded,
		application.ErrMarginalPricesNotSupported,
		marketmaking.ErrMarketNotFunded,
		ports.ErrInsufficientBalance,
		ports.ErrInsufficientAllowance,
		ports.ErrTransferRejected,
		ports.ErrNotApproved,
		mathutil.ErrOverflow,
		mathutil.ErrNegativeOperand,
	},
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusForError(err error) int {
	for status, errs := range errorsByStatus {
		for _, e := range errs {
			if errors.Is(err, e) {
				return status
			}
		}
	}
	return http.StatusInternalServerError
}

// abortWithError ends the request with the status matching the given error.
// Internal errors are logged and not leaked to the client.
func abortWithError(c *gin.Context, err error) {
	status := statusForError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).Errorf("%s %s", c.Request.Method, c.FullPath())
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, errorResponse{msg})
}
