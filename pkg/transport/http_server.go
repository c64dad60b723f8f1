package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/vitkuz/aws-dynamo-adapter/dynamo"
	"github.com/vitkuz/aws-dynamo-adapter/pkg/config"
)

const (
	HeaderCorrelationID = "x-correlation-id"
	HeaderLatency       = "x-latency-ms"
)

type contextKey string

// ContextKeyCorrID carries the request correlation id in the context.
const ContextKeyCorrID contextKey = "correlation_id"

// RecordAPI serves the record CRUD surface over HTTP. Keyed routes take
// the partition and sort values as path segments, so key values on this
// surface are strings.
type RecordAPI struct {
	adapter *dynamo.Adapter
}

func NewRecordAPI(adapter *dynamo.Adapter) *RecordAPI {
	return &RecordAPI{adapter: adapter}
}

// Register mounts the record routes on the router:
//
//	POST   /records           create one record
//	GET    /records           list (all, or ?<sortField>=value via the index)
//	POST   /records/batch     create a batch of records
//	GET    /records/{pk}/{sk} fetch one
//	PUT    /records/{pk}/{sk} replace
//	PATCH  /records/{pk}/{sk} partial update
//	DELETE /records/{pk}/{sk} delete
func (api *RecordAPI) Register(router *mux.Router) {
	router.HandleFunc("/records", api.handleCreate).Methods(http.MethodPost)
	router.HandleFunc("/records", api.handleList).Methods(http.MethodGet)
	router.HandleFunc("/records/batch", api.handleCreateBatch).Methods(http.MethodPost)
	router.HandleFunc("/records/{pk}/{sk}", api.handleGet).Methods(http.MethodGet)
	router.HandleFunc("/records/{pk}/{sk}", api.handleReplace).Methods(http.MethodPut)
	router.HandleFunc("/records/{pk}/{sk}", api.handlePatch).Methods(http.MethodPatch)
	router.HandleFunc("/records/{pk}/{sk}", api.handleDelete).Methods(http.MethodDelete)
}

// StartHTTPServer mounts the API under the configured base path, wraps
// it with the observability middleware, and blocks serving the port.
func StartHTTPServer(cfg config.ServiceDetails, api *RecordAPI) error {
	router := mux.NewRouter()
	target := router
	if cfg.BasePath != "" {
		target = router.PathPrefix(cfg.BasePath).Subrouter()
	}
	api.Register(target)

	handler := ObservabilityMiddleware(withTimeout(cfg.GetTimeout(), router))

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info().Str("addr", addr).Msg("http server listening")
	return http.ListenAndServe(addr, handler)
}

func (api *RecordAPI) pathKey(r *http.Request) dynamo.Key {
	vars := mux.Vars(r)
	schema := api.adapter.Schema()
	return dynamo.Key{
		schema.PartitionField: vars["pk"],
		schema.SortField:      vars["sk"],
	}
}

func (api *RecordAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var rec dynamo.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := api.adapter.CreateOne(r.Context(), rec)
	if err != nil {
		respondAdapterError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (api *RecordAPI) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var recs []dynamo.Record
	if err := json.NewDecoder(r.Body).Decode(&recs); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body, expected an array of records")
		return
	}
	created, err := api.adapter.CreateMany(r.Context(), recs)
	if err != nil {
		respondAdapterError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (api *RecordAPI) handleList(w http.ResponseWriter, r *http.Request) {
	schema := api.adapter.Schema()
	if value := r.URL.Query().Get(schema.SortField); value != "" {
		recs, err := api.adapter.FetchAllByIndexValue(r.Context(), value)
		if err != nil {
			respondAdapterError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, recs)
		return
	}
	recs, err := api.adapter.Fetcher().FetchAll(r.Context())
	if err != nil {
		respondAdapterError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

func (api *RecordAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := api.adapter.FetchOne(r.Context(), api.pathKey(r))
	if err != nil {
		respondAdapterError(w, r, err)
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "record not found")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (api *RecordAPI) handleReplace(w http.ResponseWriter, r *http.Request) {
	var rec dynamo.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if rec == nil {
		rec = dynamo.Record{}
	}
	// The path owns the key; the body cannot move the record.
	for field, value := range api.pathKey(r) {
		rec[field] = value
	}
	stored, err := api.adapter.ReplaceOne(r.Context(), rec)
	if err != nil {
		respondAdapterError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stored)
}

func (api *RecordAPI) handlePatch(w http.ResponseWriter, r *http.Request) {
	var updates dynamo.Record
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	stored, err := api.adapter.PatchOne(r.Context(), api.pathKey(r), updates)
	if err != nil {
		respondAdapterError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stored)
}

func (api *RecordAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := api.adapter.DeleteOne(r.Context(), api.pathKey(r)); err != nil {
		respondAdapterError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondAdapterError maps validation failures to 400 and keeps backend
// details out of responses.
func respondAdapterError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *dynamo.ValidationError
	var berr *dynamo.BatchValidationError
	if errors.As(err, &verr) || errors.As(err, &berr) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Ctx(r.Context()).Error().Err(err).Msg("record operation failed")
	respondError(w, http.StatusInternalServerError, "internal server error")
}

func withTimeout(d time.Duration, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode  int
	startTime   time.Time
	wroteHeader bool
}

func (rw *responseWriterWrapper) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	duration := time.Since(rw.startTime)
	rw.Header().Set(HeaderLatency, fmt.Sprintf("%d", duration.Milliseconds()))
	rw.ResponseWriter.WriteHeader(code)
	rw.wroteHeader = true
}

func (rw *responseWriterWrapper) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// ObservabilityMiddleware assigns every request a correlation id,
// carries a contextual logger, and logs method, path, status, and
// latency on completion.
func ObservabilityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		corrID := r.Header.Get(HeaderCorrelationID)
		if corrID == "" {
			corrID = uuid.NewString()
		}
		w.Header().Set(HeaderCorrelationID, corrID)

		logger := log.With().Str("correlation_id", corrID).Logger()
		ctx := logger.WithContext(r.Context())
		ctx = context.WithValue(ctx, ContextKeyCorrID, corrID)

		wrapper := &responseWriterWrapper{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			startTime:      start,
		}

		next.ServeHTTP(wrapper, r.WithContext(ctx))

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Msg("request completed")
	})
}
