package http

import (
	"net/http"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
)

func (s *Server) handleNextInvoiceNumber(w http.ResponseWriter, r *http.Request) {
	unit, err := core.ParseBusinessUnit(r.PathValue("businessUnit"))
	if err != nil {
		writeError(w, r, log.OpAllocate, err)
		return
	}
	number, err := s.svc.Invoices.NextNumber(r.Context(), unit)
	if err != nil {
		writeError(w, r, log.OpAllocate, err)
		return
	}
	writeJSON(w, http.StatusOK, number)
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	d, err := req.document()
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	created, err := s.svc.Invoices.Create(r.Context(), d)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeMutation(w, r, http.StatusCreated, created, amqp.EntityDocument, amqp.ActionUpsert, created.ID, created.Version)
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	f, q := parseDocumentFilter(r)
	if q.err != nil {
		writeError(w, r, log.OpList, q.err)
		return
	}
	docs, err := s.svc.Invoices.List(r.Context(), f)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	if docs == nil {
		docs = []core.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Invoices.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	updated, err := s.svc.Invoices.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeMutation(w, r, http.StatusOK, updated, amqp.EntityDocument, amqp.ActionUpsert, updated.ID, updated.Version)
}

func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.Invoices.Delete(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	writeMutation(w, r, http.StatusOK, map[string]string{"message": "Invoice deleted successfully"},
		amqp.EntityDocument, amqp.ActionDelete, id, 0)
}

func (s *Server) handleInvoiceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Invoices.Stats(r.Context())
	if err != nil {
		writeError(w, r, log.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
