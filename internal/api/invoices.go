package api

import (
	"net/http"
	"strings"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/service"
)

type invoiceRequest struct {
	Client      string `json:"client"`
	Start       string `json:"start"`
	End         string `json:"end"`
	InvoiceDate string `json:"invoice_date"`
	Notes       string `json:"notes"`
}

func (req invoiceRequest) toService() (service.InvoiceRequest, error) {
	out := service.InvoiceRequest{Client: req.Client, Notes: req.Notes}
	var err error
	if out.Start, err = parseOptionalDate("start", req.Start); err != nil {
		return out, err
	}
	if out.End, err = parseOptionalDate("end", req.End); err != nil {
		return out, err
	}
	if out.Start.IsZero() || out.End.IsZero() {
		return out, &models.ValidationError{Field: "start", Msg: "start and end are required"}
	}
	if out.InvoiceDate, err = parseOptionalDate("invoice_date", req.InvoiceDate); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Server) listInvoices(w http.ResponseWriter, r *http.Request) {
	var statuses []models.InvoiceStatus
	if v := r.URL.Query().Get("status"); v != "" {
		for _, st := range strings.Split(v, ",") {
			statuses = append(statuses, models.InvoiceStatus(strings.TrimSpace(st)))
		}
	}
	invoices, err := s.svc.ListInvoices(r.Context(), r.URL.Query().Get("client"), statuses)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

func (s *Server) previewInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	in, err := req.toService()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	preview, err := s.svc.PreviewInvoice(r.Context(), in.Client, in.Start, in.End)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	in, err := req.toService()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	inv, err := s.svc.CreateInvoice(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (s *Server) getInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.svc.GetInvoice(r.Context(), pathParam(r, "invoice"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteInvoice(r.Context(), pathParam(r, "invoice")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getInvoiceHTML(w http.ResponseWriter, r *http.Request) {
	html, err := s.svc.RenderInvoiceHTML(r.Context(), pathParam(r, "invoice"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

func (s *Server) getInvoicePDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	inv, err := s.svc.GetInvoice(ctx, pathParam(r, "invoice"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.svc.InvoicePDF(ctx, inv.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeFile(w, "application/pdf", service.InvoiceFileName(inv, "pdf"), out)
}

type statusRequest struct {
	Status models.InvoiceStatus `json:"status"`
}

func (s *Server) setInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	inv, err := s.svc.SetInvoiceStatus(r.Context(), pathParam(r, "invoice"), req.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) voidInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.svc.VoidInvoice(r.Context(), pathParam(r, "invoice"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

type lineRequest struct {
	Description string `json:"description"`
}

func (s *Server) updateInvoiceLine(w http.ResponseWriter, r *http.Request) {
	var req lineRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	line, err := s.svc.SetLineDescription(r.Context(), pathParam(r, "id"), req.Description)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}
