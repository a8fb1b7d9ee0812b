package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tupakrantina/backoffice/internal/auth"
	"github.com/tupakrantina/backoffice/internal/cartera"
	"github.com/tupakrantina/backoffice/internal/contracts"
	"github.com/tupakrantina/backoffice/internal/ingest"
	"github.com/tupakrantina/backoffice/pkg/logger"
	"github.com/tupakrantina/backoffice/pkg/redis"
)

const (
	maxUploadBytes = 20 << 20
	lastReportTTL  = 40 * 24 * time.Hour
)

// RecordSource loads the loan records stored in the database
type RecordSource interface {
	ListRecords(ctx context.Context) ([]contracts.LoanRecord, error)
}

// ReportInfo is the metadata of the last report generated for a month
type ReportInfo struct {
	RunID       string    `json:"run_id"`
	FileName    string    `json:"file_name"`
	Pages       int       `json:"pages"`
	Bytes       int       `json:"bytes"`
	ArchiveURL  string    `json:"archive_url,omitempty"`
	Emailed     bool      `json:"emailed"`
	GeneratedBy string    `json:"generated_by,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ReportHandler serves the cartera report endpoints
// ⭐ SSOT: HTTP access to report generation goes through this handler
type ReportHandler struct {
	generator *cartera.Generator
	source    RecordSource
	cache     *redis.Cache
	location  *time.Location
	now       func() time.Time
	logger    *logger.Logger
}

// NewReportHandler creates a report handler. source may be nil when no
// database is configured; cache may wrap a disabled Redis client.
func NewReportHandler(gen *cartera.Generator, source RecordSource, cache *redis.Cache, loc *time.Location, log *logger.Logger) *ReportHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ReportHandler{
		generator: gen,
		source:    source,
		cache:     cache,
		location:  loc,
		now:       time.Now,
		logger:    log,
	}
}

// Generate builds the PDF and returns it as an attachment
// POST /api/reports/cartera[?source=db&date=YYYY-MM-DD&archive=true&email=true]
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ref, err := h.referenceDate(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, status, err := h.loadRecords(w, r)
	if err != nil {
		respondError(w, status, err.Error())
		return
	}

	q := r.URL.Query()
	opts := cartera.RunOptions{
		ReferenceDate: ref,
		Archive:       queryBool(q.Get("archive")),
		Email:         queryBool(q.Get("email")),
	}

	res, err := h.generator.Generate(ctx, records, opts)
	var ce *cartera.Error
	switch {
	case err == nil:
	case errors.As(err, &ce) && ce.Kind == cartera.KindDelivery && res != nil:
		// the PDF exists; hand it over and report the delivery problem
		h.logger.WithError(err).Warn("Report delivered with errors")
		w.Header().Set("X-Report-Warning", headerSafe(cartera.UserMessage(err)))
	default:
		respondError(w, reportErrorStatus(err), cartera.UserMessage(err))
		return
	}

	info := ReportInfo{
		RunID:       res.RunID,
		FileName:    res.FileName,
		Pages:       res.PageCount,
		Bytes:       len(res.PDF),
		ArchiveURL:  res.ArchiveURL,
		Emailed:     res.Emailed,
		GeneratedAt: h.now(),
	}
	if u := auth.UserFromContext(ctx); u != nil {
		info.GeneratedBy = auth.DisplayName(u, "")
	}
	if err := h.cache.Set(ctx, redis.ReportKey(ref.Year(), ref.Month()), info, lastReportTTL); err != nil {
		h.logger.WithError(err).Warn("Failed to cache report metadata")
	}

	h.logger.WithFields(map[string]interface{}{
		"run_id": res.RunID,
		"file":   res.FileName,
		"size":   humanize.Bytes(uint64(len(res.PDF))),
	}).Info("Report served")

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.PDF)))
	w.Header().Set("X-Report-Run-Id", res.RunID)
	if res.ArchiveURL != "" {
		w.Header().Set("X-Report-Archive-Url", res.ArchiveURL)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(res.PDF)
}

// Score returns the aggregate without rendering
// GET /api/reports/cartera/score?source=db[&date=YYYY-MM-DD]
// POST /api/reports/cartera/score (records in the body)
func (h *ReportHandler) Score(w http.ResponseWriter, r *http.Request) {
	ref, err := h.referenceDate(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, status, err := h.loadRecords(w, r)
	if err != nil {
		respondError(w, status, err.Error())
		return
	}

	agg, err := h.generator.Score(records, ref)
	if err != nil {
		respondError(w, reportErrorStatus(err), cartera.UserMessage(err))
		return
	}

	respondJSON(w, http.StatusOK, agg)
}

// Last returns the metadata of the last report generated for a month
// GET /api/reports/cartera/last[?date=YYYY-MM-DD]
func (h *ReportHandler) Last(w http.ResponseWriter, r *http.Request) {
	ref, err := h.referenceDate(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var info ReportInfo
	found, err := h.cache.Get(r.Context(), redis.ReportKey(ref.Year(), ref.Month()), &info)
	if err != nil {
		h.logger.WithError(err).Error("Failed to read report metadata")
		respondError(w, http.StatusInternalServerError, "No se pudo consultar el último reporte")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "No hay reportes generados para ese mes")
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// Status reports whether a run is in flight in this process
// GET /api/reports/cartera/status
func (h *ReportHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"busy": h.generator.Busy(),
	})
}

// loadRecords reads the records from the database (?source=db) or from
// the request body, picking the decoder from the Content-Type.
func (h *ReportHandler) loadRecords(w http.ResponseWriter, r *http.Request) ([]contracts.LoanRecord, int, error) {
	if r.URL.Query().Get("source") == "db" {
		if h.source == nil {
			return nil, http.StatusServiceUnavailable, errors.New("Base de datos no configurada")
		}
		records, err := h.source.ListRecords(r.Context())
		if err != nil {
			h.logger.WithError(err).Error("Failed to load loan records")
			return nil, http.StatusInternalServerError, errors.New("No se pudieron cargar los créditos")
		}
		return records, http.StatusOK, nil
	}

	if r.Body == nil || r.Method == http.MethodGet {
		return nil, http.StatusBadRequest, errors.New("Envíe los créditos en el cuerpo o use source=db")
	}

	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	records, err := ingest.Read(body, bodyFormat(r.Header.Get("Content-Type")), ingest.Options{Location: h.location, Logger: h.logger})
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, errors.New("Archivo demasiado grande")
		}
		return nil, http.StatusBadRequest, fmt.Errorf("Datos de créditos inválidos: %v", err)
	}
	return records, http.StatusOK, nil
}

func (h *ReportHandler) referenceDate(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("date")
	if v == "" {
		return h.now().In(h.location), nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, h.location)
	if err != nil {
		return time.Time{}, errors.New("Fecha inválida (formato YYYY-MM-DD)")
	}
	return t, nil
}

func bodyFormat(contentType string) ingest.Format {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch {
	case strings.Contains(mediaType, "csv"):
		return ingest.FormatCSV
	case strings.Contains(mediaType, "spreadsheetml"), strings.Contains(mediaType, "excel"):
		return ingest.FormatXLSX
	default:
		return ingest.FormatJSON
	}
}

func reportErrorStatus(err error) int {
	var ce *cartera.Error
	if !errors.As(err, &ce) {
		return http.StatusInternalServerError
	}
	switch ce.Kind {
	case cartera.KindInputEmpty:
		return http.StatusUnprocessableEntity
	case cartera.KindInFlight:
		return http.StatusConflict
	case cartera.KindDelivery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func queryBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

// headerSafe drops characters that are not allowed in header values
func headerSafe(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
