package http

import (
	"net/http"
	"strings"

	"registro/internal/core"
	applog "registro/internal/log"
)

type lookupListResponse struct {
	Kind  core.LookupKind `json:"kind"`
	Items []core.Lookup   `json:"items"`
}

type rowsResponse struct {
	Count int        `json:"count"`
	Rows  []core.Row `json:"rows"`
}

type createdResponse struct {
	ID int64 `json:"id"`
}

// writeError logs server-side failures and sends the mapped error response.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := StatusFor(err)
	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			applog.FieldOperation, op,
			applog.FieldStatusCode, status,
			applog.FieldError, err.Error())
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			applog.FieldOperation, op,
			applog.FieldStatusCode, status,
			applog.FieldError, err.Error())
	}
	ErrorFrom(err).Write(w)
}

func lookupKind(w http.ResponseWriter, r *http.Request) (core.LookupKind, bool) {
	kind := core.LookupKind(r.PathValue("kind"))
	if !kind.IsValid() {
		NotFoundError("unknown lookup kind " + string(kind)).Write(w)
		return "", false
	}
	return kind, true
}

func (s *Server) handleAllLookups(w http.ResponseWriter, r *http.Request) {
	all, err := s.ledger.AllLookups(r.Context())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().JSON(all).Write(w)
}

func (s *Server) handleListLookups(w http.ResponseWriter, r *http.Request) {
	kind, ok := lookupKind(w, r)
	if !ok {
		return
	}
	items, err := s.ledger.ListLookups(r.Context(), kind)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().JSON(lookupListResponse{Kind: kind, Items: items}).Write(w)
}

// handleEnsureLookup resolves a name to its id, creating the entry when
// absent. Repeating the call returns the same id.
func (s *Server) handleEnsureLookup(w http.ResponseWriter, r *http.Request) {
	kind, ok := lookupKind(w, r)
	if !ok {
		return
	}
	var req lookupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}

	if err := checkText("name", req.Name); err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	id, err := s.ledger.EnsureLookup(r.Context(), kind, name)
	if err != nil {
		writeError(w, r, applog.OpEnsure, err)
		return
	}
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Lookup resolved",
		applog.NewFields().WithLookup(string(kind), id, name).ToSlice()...)
	NewJSONResponse().JSON(core.Lookup{ID: id, Name: name}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}

	tx, err := req.toTransaction()
	if err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}
	id, err := s.ledger.RecordTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, r, applog.OpAppend, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).JSON(createdResponse{ID: id}).Write(w)
}

func (s *Server) handleQueryTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}
	rows, err := s.ledger.Query(r.Context(), f)
	if err != nil {
		writeError(w, r, applog.OpQuery, err)
		return
	}
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Transactions queried",
		applog.FieldRowCount, len(rows))
	NewJSONResponse().JSON(rowsResponse{Count: len(rows), Rows: rows}).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := ParseFilter(q)
	if err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}
	top, err := ParseTop(q)
	if err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}

	d, err := s.ledger.Dashboard(r.Context(), f, top, ParseFillGaps(q))
	if err != nil {
		writeError(w, r, applog.OpAggregate, err)
		return
	}
	NewJSONResponse().JSON(d).Write(w)
}
