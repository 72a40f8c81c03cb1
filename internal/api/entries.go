package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/service"
)

type entryRequest struct {
	Client   string `json:"client"`
	WorkType string `json:"work_type"`
	Project  string `json:"project"`
	Minutes  int64  `json:"minutes"`
	From     string `json:"from"`
	To       string `json:"to"`
	Date     string `json:"date"`
	Note     string `json:"note"`
}

func entryQuery(r *http.Request) (service.TimeEntryQuery, error) {
	q := service.TimeEntryQuery{Client: r.URL.Query().Get("client")}
	var err error
	if q.From, err = queryDate(r, "from"); err != nil {
		return q, err
	}
	if q.To, err = queryDate(r, "to"); err != nil {
		return q, err
	}
	if v := r.URL.Query().Get("billed"); v != "" {
		billed, err := strconv.ParseBool(v)
		if err != nil {
			return q, &models.ValidationError{Field: "billed", Msg: "expected true or false", Err: err}
		}
		q.Billed = &billed
	}
	return q, nil
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	q, err := entryQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entries, err := s.svc.ListTimeEntries(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	entry, err := s.svc.LogTime(r.Context(), service.TimeEntryInput(req))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) exportEntries(w http.ResponseWriter, r *http.Request) {
	q, err := entryQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if _, err := s.svc.ExportTimeEntriesCSV(r.Context(), q, &buf); err != nil {
		s.fail(w, r, err)
		return
	}
	writeFile(w, "text/csv", "time_entries.csv", buf.Bytes())
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTimeEntry(r.Context(), pathParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
