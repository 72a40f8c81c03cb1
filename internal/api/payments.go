package api

import (
	"net/http"

	"github.com/jesses-code-adventures/billing/internal/service"
)

type applicationRequest struct {
	Invoice     string `json:"invoice"`
	AmountCents int64  `json:"amount_cents"`
}

type paymentRequest struct {
	Date         string               `json:"date"`
	AmountCents  int64                `json:"amount_cents"`
	Note         string               `json:"note"`
	Applications []applicationRequest `json:"applications"`
}

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.svc.ListPayments(r.Context(), r.URL.Query().Get("client"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (s *Server) createPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	in := service.PaymentInput{Date: date, AmountCents: req.AmountCents, Note: req.Note}
	for _, a := range req.Applications {
		in.Applications = append(in.Applications, service.ApplicationInput(a))
	}
	payment, err := s.svc.RecordPayment(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (s *Server) getPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := s.svc.GetPayment(r.Context(), pathParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (s *Server) deletePayment(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeletePayment(r.Context(), pathParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) applyPayment(w http.ResponseWriter, r *http.Request) {
	var req applicationRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	app, err := s.svc.ApplyPayment(r.Context(), pathParam(r, "id"), req.Invoice, req.AmountCents)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

type expenseRequest struct {
	Vendor     string `json:"vendor"`
	Item       string `json:"item"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int64  `json:"quantity"`
	Date       string `json:"date"`
	IsRefund   bool   `json:"is_refund"`
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	expenses, err := s.svc.ListExpenses(r.Context(), from, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	expense, err := s.svc.AddExpense(r.Context(), service.ExpenseInput{
		Vendor:     req.Vendor,
		Item:       req.Item,
		PriceCents: req.PriceCents,
		Quantity:   req.Quantity,
		Date:       date,
		IsRefund:   req.IsRefund,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteExpense(r.Context(), pathParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
