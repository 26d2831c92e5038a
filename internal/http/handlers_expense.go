package http

import (
	"net/http"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	e, err := req.expense()
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	created, err := s.svc.Expenses.Create(r.Context(), e)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeMutation(w, r, http.StatusCreated, created, amqp.EntityExpense, amqp.ActionUpsert, created.ID, created.Version)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	f, q := parseExpenseFilter(r)
	if q.err != nil {
		writeError(w, r, log.OpList, q.err)
		return
	}
	expenses, err := s.svc.Expenses.List(r.Context(), f)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.svc.Expenses.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	updated, err := s.svc.Expenses.Update(r.Context(), r.PathValue("id"), req.patch())
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeMutation(w, r, http.StatusOK, updated, amqp.EntityExpense, amqp.ActionUpsert, updated.ID, updated.Version)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.Expenses.Delete(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	writeMutation(w, r, http.StatusOK, map[string]string{"message": "Expense deleted successfully"},
		amqp.EntityExpense, amqp.ActionDelete, id, 0)
}

func (s *Server) handleExpenseSummary(w http.ResponseWriter, r *http.Request) {
	f, q := parseExpenseFilter(r)
	asOf := q.asOf()
	if q.err != nil {
		writeError(w, r, log.OpAggregate, q.err)
		return
	}
	summary, err := s.svc.Expenses.Summary(r.Context(), f, asOf)
	if err != nil {
		writeError(w, r, log.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
