package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"

	intdb "dispatch/internal/db"
	"dispatch/internal/domain"
	"dispatch/internal/domain/models"
	"dispatch/internal/repositories"
)

// tripAuditData is what a trip audit report is rendered from.
type tripAuditData struct {
	Trip    models.Trip
	Entries []models.AuditLogEntry
}

// AuditReportService reads a trip's audit trail and renders it as PDF.
// Loader can be swapped in tests.
type AuditReportService struct {
	DB     intdb.Querier
	Loader func(ctx context.Context, tripID int64) (tripAuditData, error)
}

func (s AuditReportService) load(ctx context.Context, tripID int64) (tripAuditData, error) {
	if s.Loader != nil {
		return s.Loader(ctx, tripID)
	}
	trip, err := repositories.TripRepository{DB: s.DB}.GetByID(ctx, tripID)
	if repositories.IsNoRows(err) {
		return tripAuditData{}, domain.NewActionError(domain.KindTripNotFound, "trip %d not found", tripID)
	}
	if err != nil {
		return tripAuditData{}, err
	}
	entries, err := repositories.AuditRepository{DB: s.DB}.ListByEntity(ctx, auditEntityTrip, tripID)
	if err != nil {
		return tripAuditData{}, err
	}
	return tripAuditData{Trip: trip, Entries: entries}, nil
}

// List returns the trip's audit entries, oldest first.
func (s AuditReportService) List(ctx context.Context, tripID int64) ([]models.AuditLogEntry, error) {
	d, err := s.load(ctx, tripID)
	return d.Entries, err
}

// GeneratePDF renders the trip's audit trail and a file name for it.
func (s AuditReportService) GeneratePDF(ctx context.Context, tripID int64) ([]byte, string, error) {
	d, err := s.load(ctx, tripID)
	if err != nil {
		return nil, "", err
	}
	return buildAuditPDF(d)
}

func buildAuditPDF(d tripAuditData) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Trip Audit", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "TRIP AUDIT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	header := []string{
		fmt.Sprintf("Trip        : #%d %s", d.Trip.ID, safe(d.Trip.Label, "-")),
		fmt.Sprintf("Route       : %s", safe(d.Trip.RouteName, "-")),
		fmt.Sprintf("Date/Time   : %s %s", safe(d.Trip.ServiceDate, "-"), safe(d.Trip.ServiceTime, "-")),
		fmt.Sprintf("Status      : %s", safe(string(d.Trip.Status), "-")),
		fmt.Sprintf("Entries     : %d", len(d.Entries)),
	}
	for _, line := range header {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	if len(d.Entries) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.Cell(0, 7, "No recorded actions.")
		pdf.Ln(7)
	}
	for _, e := range d.Entries {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 7, fmt.Sprintf("#%d  %s  %s  by user %d", e.LogID, e.LoggedAt.Format("2006-01-02 15:04:05"), e.Action, e.UserID))
		pdf.Ln(7)
		pdf.SetFont("Courier", "", 9)
		pdf.MultiCell(0, 5, string(e.Details), "", "", false)
		pdf.Ln(2)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("AUDIT_TRIP_%d_%s.pdf", d.Trip.ID, safeFilenamePart(d.Trip.Label))
	return buf.Bytes(), filename, nil
}

func safe(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
