package http

import (
	"net/http"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
)

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	in, err := req.income()
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	created, err := s.svc.Incomes.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeMutation(w, r, http.StatusCreated, created, amqp.EntityIncome, amqp.ActionUpsert, created.ID, created.Version)
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	f, q := parseIncomeFilter(r)
	if q.err != nil {
		writeError(w, r, log.OpList, q.err)
		return
	}
	incomes, err := s.svc.Incomes.List(r.Context(), f)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	if incomes == nil {
		incomes = []core.Income{}
	}
	writeJSON(w, http.StatusOK, incomes)
}

func (s *Server) handleGetIncome(w http.ResponseWriter, r *http.Request) {
	in, err := s.svc.Incomes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	updated, err := s.svc.Incomes.Update(r.Context(), r.PathValue("id"), req.patch())
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeMutation(w, r, http.StatusOK, updated, amqp.EntityIncome, amqp.ActionUpsert, updated.ID, updated.Version)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.Incomes.Delete(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	writeMutation(w, r, http.StatusOK, map[string]string{"message": "Income deleted successfully"},
		amqp.EntityIncome, amqp.ActionDelete, id, 0)
}

func (s *Server) handleMarkDueAsPaid(w http.ResponseWriter, r *http.Request) {
	var req markPaidRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, r, log.OpSettle, err)
		return
	}

	settled, err := s.svc.Incomes.MarkDueAsPaid(r.Context(), r.PathValue("id"), req.PaidDate)
	if err != nil {
		writeError(w, r, log.OpSettle, err)
		return
	}
	writeMutation(w, r, http.StatusOK, settled, amqp.EntityIncome, amqp.ActionUpsert, settled.ID, settled.Version)
}

func (s *Server) handleIncomeSummary(w http.ResponseWriter, r *http.Request) {
	f, q := parseIncomeFilter(r)
	asOf := q.asOf()
	if q.err != nil {
		writeError(w, r, log.OpAggregate, q.err)
		return
	}
	summary, err := s.svc.Incomes.Summary(r.Context(), f, asOf)
	if err != nil {
		writeError(w, r, log.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleOutstandingDues(w http.ResponseWriter, r *http.Request) {
	f, q := parseDuesFilter(r)
	asOf := q.asOf()
	if q.err != nil {
		writeError(w, r, log.OpList, q.err)
		return
	}
	dues, err := s.svc.Incomes.OutstandingDues(r.Context(), f, asOf)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, dues)
}
