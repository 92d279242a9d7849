package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Spok95/barber-club/internal/infra/http/request"
	"github.com/Spok95/barber-club/internal/infra/http/response"
	"github.com/Spok95/barber-club/internal/reports"
)

// ReportBuilder — *reports.VIPClub.
type ReportBuilder interface {
	Build(ctx context.Context, barbershopID uuid.UUID, month string) (*reports.Report, error)
}

type ReportsHandler struct {
	vip ReportBuilder
	loc *time.Location
	log *slog.Logger
}

func NewReportsHandler(vip ReportBuilder, loc *time.Location, log *slog.Logger) *ReportsHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ReportsHandler{vip: vip, loc: loc, log: log}
}

// VIPClub — GET /api/v1/barbershops/{barbershopID}/reports/vip-club?month=YYYY-MM.
// Без month — текущий месяц.
func (h *ReportsHandler) VIPClub(w http.ResponseWriter, r *http.Request) {
	shopID, err := request.UUID("barbershop_id", chi.URLParam(r, "barbershopID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().In(h.loc).Format(reports.MonthLayout)
	}

	rep, err := h.vip.Build(r.Context(), shopID, month)
	if err != nil {
		if errors.Is(err, reports.ErrInvalidMonth) {
			response.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error("vip club report failed", "barbershop_id", shopID, "month", month, "err", err)
		response.WriteError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, rep.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rep.Data)
}
