package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	intdb "dispatch/internal/db"
	"dispatch/internal/http/middleware"
	"dispatch/internal/intent"
	"dispatch/internal/metrics"
	"dispatch/internal/services"
)

// API holds what the dispatch handlers need. Services are built per request
// so each one carries the request id.
type API struct {
	DB                  *intdb.DB
	Parser              intent.Parser
	Metrics             *metrics.Metrics
	ConflictWindow      time.Duration
	ConfidenceThreshold float64
	SessionTTL          time.Duration
	EventsTopic         string
	ParseTimeout        time.Duration
	Now                 func() time.Time
}

func (a *API) actions(c *gin.Context) services.ActionService {
	return services.ActionService{
		DB:                  a.DB,
		ConflictWindow:      a.ConflictWindow,
		ConfidenceThreshold: a.ConfidenceThreshold,
		SessionTTL:          a.SessionTTL,
		EventsTopic:         a.EventsTopic,
		ParseTimeout:        a.ParseTimeout,
		Metrics:             a.Metrics,
		Now:                 a.Now,
		RequestID:           middleware.GetRequestID(c),
	}
}
