package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/service"
)

type clientRequest struct {
	Name            string            `json:"name"`
	Email           *string           `json:"email"`
	Type            models.ClientType `json:"type"`
	HourlyRateCents int64             `json:"hourly_rate_cents"`
	DiscountPercent decimal.Decimal   `json:"discount_percent"`
}

type clientUpdateRequest struct {
	Email           *string            `json:"email"`
	Type            *models.ClientType `json:"type"`
	HourlyRateCents *int64             `json:"hourly_rate_cents"`
	DiscountPercent *decimal.Decimal   `json:"discount_percent"`
	CompanyName     *string            `json:"company_name"`
	ContactName     *string            `json:"contact_name"`
	Phone           *string            `json:"phone"`
	AddressLine1    *string            `json:"address_line1"`
	AddressLine2    *string            `json:"address_line2"`
	City            *string            `json:"city"`
	State           *string            `json:"state"`
	PostalCode      *string            `json:"postal_code"`
	Country         *string            `json:"country"`
	TaxNumber       *string            `json:"tax_number"`
}

func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.svc.ListClients(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (s *Server) createClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	client, err := s.svc.CreateClient(r.Context(), service.ClientInput(req))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

func (s *Server) getClient(w http.ResponseWriter, r *http.Request) {
	client, err := s.svc.GetClient(r.Context(), pathParam(r, "client"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (s *Server) updateClient(w http.ResponseWriter, r *http.Request) {
	var req clientUpdateRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	client, err := s.svc.UpdateClient(r.Context(), pathParam(r, "client"), service.ClientUpdate(req))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

type workTypeRequest struct {
	Code        string  `json:"code"`
	Description *string `json:"description"`
}

func (s *Server) listWorkTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.svc.ListWorkTypes(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (s *Server) createWorkType(w http.ResponseWriter, r *http.Request) {
	var req workTypeRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	wt, err := s.svc.CreateWorkType(r.Context(), req.Code, req.Description)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wt)
}
