package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	intdb "dispatch/internal/db"
	"dispatch/internal/domain"
	"dispatch/internal/services"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindTargetNotFound, domain.KindTripNotFound, domain.KindSessionNotFound:
		return http.StatusNotFound
	case domain.KindMissingParameter, domain.KindInvalidParameter, domain.KindTargetAmbiguous:
		return http.StatusBadRequest
	case domain.KindAlreadyDeployed, domain.KindResourceUnavailable, domain.KindNoDeployment,
		domain.KindTripClosed, domain.KindSessionAlreadyResolved:
		return http.StatusConflict
	case domain.KindSessionExpired:
		return http.StatusGone
	case domain.KindTransientStore:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// RespondDomainError maps domain errors to {ok:false,error,message}. Store
// errors never reach the caller verbatim.
func RespondDomainError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal && intdb.IsTransient(err) {
		kind = domain.KindTransientStore
	}
	status := statusFor(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "terjadi kesalahan"
	}
	if status == http.StatusServiceUnavailable {
		msg = "store unavailable, try again"
	}
	RespondError(c, status, string(kind), msg)
}

// respondAction writes an ActionResponse. BLOCKED and FAILED carry ok=false
// and a non-2xx status; the rest are 200.
func respondAction(c *gin.Context, resp services.ActionResponse) {
	status := http.StatusOK
	switch resp.Status {
	case services.StatusBlocked:
		status = http.StatusConflict
	case services.StatusFailed:
		status = statusFor(resp.Error)
		if status < http.StatusInternalServerError {
			status = http.StatusInternalServerError
		}
	}
	c.JSON(status, resp)
}
