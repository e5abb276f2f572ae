package handlers

import (
	"net/http"
	"strconv"
	"time"

	"channelpulse/internal/analytics"
)

// ROIReport serves the financial report. The optional days query parameter
// bounds the window; it defaults to the calculator's standard period.
func (a *App) ROIReport(w http.ResponseWriter, r *http.Request) {
	period := analytics.DefaultROIPeriod
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			a.jsonError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		period = time.Duration(days) * 24 * time.Hour
	}

	report, err := a.ROI.Calculate(r.Context(), period)
	if err != nil {
		a.Logger.Error().Err(err).Msg("roi: report failed")
		a.jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	a.json(w, http.StatusOK, report)
}
