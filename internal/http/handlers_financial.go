package http

import (
	"net/http"

	"ledger/internal/log"
)

func (s *Server) handleFinancialSummary(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	asOf := q.asOf()
	if q.err != nil {
		writeError(w, r, log.OpAggregate, q.err)
		return
	}
	summary, err := s.svc.Financial.Summary(r.Context(), asOf)
	if err != nil {
		writeError(w, r, log.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleFinancialAnalytics(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	asOf := q.asOf()
	if q.err != nil {
		writeError(w, r, log.OpAggregate, q.err)
		return
	}
	report, err := s.svc.Financial.Analytics(r.Context(), asOf)
	if err != nil {
		writeError(w, r, log.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	sheet, err := s.svc.Financial.BalanceSheet(r.Context())
	if err != nil {
		writeError(w, r, log.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}
