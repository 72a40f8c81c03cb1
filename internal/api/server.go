// Package api exposes the billing service over HTTP as JSON, plus an HTML
// preview and PDF downloads of invoices and statements.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/jesses-code-adventures/billing/internal/logger"
	"github.com/jesses-code-adventures/billing/internal/service"
)

type Server struct {
	svc      *service.BillingService
	log      zerolog.Logger
	user     string
	password string
}

func NewServer(svc *service.BillingService) *Server {
	return &Server{svc: svc, log: logger.WithComponent("api")}
}

// WithBasicAuth requires the given credentials on every API route. Empty
// credentials leave the API open.
func (s *Server) WithBasicAuth(user, password string) *Server {
	s.user, s.password = user, password
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.basicAuth)

		r.Get("/clients", s.listClients)
		r.Post("/clients", s.createClient)
		r.Get("/clients/{client}", s.getClient)
		r.Patch("/clients/{client}", s.updateClient)
		r.Get("/clients/{client}/statement", s.getStatement)
		r.Get("/clients/{client}/statement/pdf", s.getStatementPDF)

		r.Get("/work-types", s.listWorkTypes)
		r.Post("/work-types", s.createWorkType)

		r.Get("/entries", s.listEntries)
		r.Post("/entries", s.createEntry)
		r.Get("/entries/export", s.exportEntries)
		r.Delete("/entries/{id}", s.deleteEntry)

		r.Get("/invoices", s.listInvoices)
		r.Post("/invoices", s.createInvoice)
		r.Post("/invoices/preview", s.previewInvoice)
		r.Get("/invoices/{invoice}", s.getInvoice)
		r.Delete("/invoices/{invoice}", s.deleteInvoice)
		r.Get("/invoices/{invoice}/html", s.getInvoiceHTML)
		r.Get("/invoices/{invoice}/pdf", s.getInvoicePDF)
		r.Post("/invoices/{invoice}/status", s.setInvoiceStatus)
		r.Post("/invoices/{invoice}/void", s.voidInvoice)
		r.Patch("/invoice-lines/{id}", s.updateInvoiceLine)

		r.Get("/payments", s.listPayments)
		r.Post("/payments", s.createPayment)
		r.Get("/payments/{id}", s.getPayment)
		r.Delete("/payments/{id}", s.deletePayment)
		r.Post("/payments/{id}/applications", s.applyPayment)

		r.Get("/expenses", s.listExpenses)
		r.Post("/expenses", s.createExpense)
		r.Delete("/expenses/{id}", s.deleteExpense)

		r.Get("/dashboard", s.getDashboard)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("address", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info().Msg("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log := logger.WithRequestID(middleware.GetReqID(r.Context()))
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("took", time.Since(start)).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	if s.user == "" && s.password == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(s.user)) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), []byte(s.password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="billing"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
