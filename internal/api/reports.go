package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jesses-code-adventures/billing/internal/dashboard"
	"github.com/jesses-code-adventures/billing/internal/models"
)

// statementRange reads from/to; both are required.
func statementRange(r *http.Request) (time.Time, time.Time, error) {
	from, err := queryDate(r, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := queryDate(r, "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if from == nil || to == nil {
		return time.Time{}, time.Time{}, &models.ValidationError{Field: "from", Msg: "from and to are required"}
	}
	return *from, *to, nil
}

func (s *Server) getStatement(w http.ResponseWriter, r *http.Request) {
	from, to, err := statementRange(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st, _, err := s.svc.Statement(r.Context(), pathParam(r, "client"), from, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) getStatementPDF(w http.ResponseWriter, r *http.Request) {
	from, to, err := statementRange(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	client := pathParam(r, "client")
	out, err := s.svc.StatementPDF(r.Context(), client, from, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	name := fmt.Sprintf("statement_%s_%s_%s.pdf", client, from.Format(models.DateFormat), to.Format(models.DateFormat))
	writeFile(w, "application/pdf", name, out)
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	basis, err := dashboard.ParseBasis(r.URL.Query().Get("basis"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	summary, err := s.svc.Dashboard(r.Context(), basis)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
