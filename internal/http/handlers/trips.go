package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/services"
	"dispatch/internal/utils"
)

// GetConsequences previews the impact of ?action= on a trip.
func (a *API) GetConsequences(c *gin.Context) {
	tripID, ok := pathID(c, "id")
	if !ok {
		return
	}
	action := strings.TrimSpace(c.DefaultQuery("action", "cancel_trip"))
	consequence, needs, err := a.actions(c).Preview(c.Request.Context(), tripID, action)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":                 true,
		"action":             action,
		"consequences":       consequence,
		"needs_confirmation": needs,
	})
}

func (a *API) GetTripAudit(c *gin.Context) {
	tripID, ok := pathID(c, "id")
	if !ok {
		return
	}
	entries, err := services.AuditReportService{DB: a.DB}.List(c.Request.Context(), tripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "trip_id": tripID, "entries": entries})
}

func (a *API) GetTripAuditPDF(c *gin.Context) {
	tripID, ok := pathID(c, "id")
	if !ok {
		return
	}
	pdf, filename, err := services.AuditReportService{DB: a.DB}.GeneratePDF(c.Request.Context(), tripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// GetAvailability lists vehicles and drivers free around ?date=&time=.
func (a *API) GetAvailability(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	if _, err := utils.ParseDate(date); err != nil {
		RespondError(c, http.StatusBadRequest, string(domain.KindInvalidParameter), "date harus YYYY-MM-DD")
		return
	}
	clock, err := utils.NormalizeClock(c.Query("time"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, string(domain.KindInvalidParameter), "time tidak valid")
		return
	}
	var exclude int64
	if raw := strings.TrimSpace(c.Query("exclude_trip_id")); raw != "" {
		if exclude, err = strconv.ParseInt(raw, 10, 64); err != nil {
			RespondError(c, http.StatusBadRequest, string(domain.KindInvalidParameter), "exclude_trip_id tidak valid")
			return
		}
	}

	avail := services.AvailabilityService{Window: a.ConflictWindow}
	ctx := c.Request.Context()
	vehicles, err := avail.ListAvailableVehicles(ctx, a.DB, date, clock, exclude)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	drivers, err := avail.ListAvailableDrivers(ctx, a.DB, date, clock, exclude)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"date":     date,
		"time":     clock,
		"vehicles": vehicles,
		"drivers":  drivers,
	})
}
