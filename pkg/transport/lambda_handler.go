package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vitkuz/aws-dynamo-adapter/dynamo"
)

// LambdaHandler adapts API Gateway proxy events and SQS events onto the
// record adapter, mirroring the HTTP server's routes and status codes.
type LambdaHandler struct {
	adapter  *dynamo.Adapter
	basePath string
}

func NewLambdaHandler(adapter *dynamo.Adapter, basePath string) *LambdaHandler {
	return &LambdaHandler{adapter: adapter, basePath: basePath}
}

// Handle processes one API Gateway proxy request.
func (h *LambdaHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()

	corrID := req.Headers[HeaderCorrelationID]
	if corrID == "" {
		// API Gateway may canonicalize header casing.
		corrID = req.Headers["X-Correlation-Id"]
	}
	if corrID == "" {
		corrID = uuid.NewString()
	}

	logger := log.With().Str("correlation_id", corrID).Logger()
	ctx = logger.WithContext(ctx)
	ctx = context.WithValue(ctx, ContextKeyCorrID, corrID)

	response := h.route(ctx, req)

	logger.Info().
		Str("method", req.HTTPMethod).
		Str("path", req.Path).
		Int("status", response.StatusCode).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Msg("lambda request completed")

	if response.Headers == nil {
		response.Headers = make(map[string]string)
	}
	response.Headers[HeaderCorrelationID] = corrID

	return response, nil
}

func (h *LambdaHandler) route(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	path := strings.TrimPrefix(req.Path, h.basePath)
	parts := splitPath(path)
	if len(parts) == 0 || parts[0] != "records" {
		return errorResponse(http.StatusNotFound, "route not found")
	}

	switch {
	case len(parts) == 1 && req.HTTPMethod == http.MethodPost:
		return h.create(ctx, req.Body)
	case len(parts) == 1 && req.HTTPMethod == http.MethodGet:
		return h.list(ctx, req.QueryStringParameters)
	case len(parts) == 2 && parts[1] == "batch" && req.HTTPMethod == http.MethodPost:
		return h.createBatch(ctx, req.Body)
	case len(parts) == 3:
		key := dynamo.Key{}
		schema := h.adapter.Schema()
		key[schema.PartitionField] = parts[1]
		key[schema.SortField] = parts[2]
		switch req.HTTPMethod {
		case http.MethodGet:
			return h.get(ctx, key)
		case http.MethodPut:
			return h.replace(ctx, key, req.Body)
		case http.MethodPatch:
			return h.patch(ctx, key, req.Body)
		case http.MethodDelete:
			return h.delete(ctx, key)
		}
	}
	return errorResponse(http.StatusMethodNotAllowed, "method not allowed")
}

func (h *LambdaHandler) create(ctx context.Context, body string) events.APIGatewayProxyResponse {
	var rec dynamo.Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return errorResponse(http.StatusBadRequest, "invalid JSON body")
	}
	created, err := h.adapter.CreateOne(ctx, rec)
	if err != nil {
		return adapterErrorResponse(ctx, err)
	}
	return jsonResponse(http.StatusCreated, created)
}

func (h *LambdaHandler) createBatch(ctx context.Context, body string) events.APIGatewayProxyResponse {
	var recs []dynamo.Record
	if err := json.Unmarshal([]byte(body), &recs); err != nil {
		return errorResponse(http.StatusBadRequest, "invalid JSON body, expected an array of records")
	}
	created, err := h.adapter.CreateMany(ctx, recs)
	if err != nil {
		return adapterErrorResponse(ctx, err)
	}
	return jsonResponse(http.StatusCreated, created)
}

func (h *LambdaHandler) list(ctx context.Context, query map[string]string) events.APIGatewayProxyResponse {
	schema := h.adapter.Schema()
	if value := query[schema.SortField]; value != "" {
		recs, err := h.adapter.FetchAllByIndexValue(ctx, value)
		if err != nil {
			return adapterErrorResponse(ctx, err)
		}
		return jsonResponse(http.StatusOK, recs)
	}
	recs, err := h.adapter.Fetcher().FetchAll(ctx)
	if err != nil {
		return adapterErrorResponse(ctx, err)
	}
	return jsonResponse(http.StatusOK, recs)
}

func (h *LambdaHandler) get(ctx context.Context, key dynamo.Key) events.APIGatewayProxyResponse {
	rec, err := h.adapter.FetchOne(ctx, key)
	if err != nil {
		return adapterErrorResponse(ctx, err)
	}
	if rec == nil {
		return errorResponse(http.StatusNotFound, "record not found")
	}
	return jsonResponse(http.StatusOK, rec)
}

func (h *LambdaHandler) replace(ctx context.Context, key dynamo.Key, body string) events.APIGatewayProxyResponse {
	var rec dynamo.Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return errorResponse(http.StatusBadRequest, "invalid JSON body")
	}
	if rec == nil {
		rec = dynamo.Record{}
	}
	for field, value := range key {
		rec[field] = value
	}
	stored, err := h.adapter.ReplaceOne(ctx, rec)
	if err != nil {
		return adapterErrorResponse(ctx, err)
	}
	return jsonResponse(http.StatusOK, stored)
}

func (h *LambdaHandler) patch(ctx context.Context, key dynamo.Key, body string) events.APIGatewayProxyResponse {
	var updates dynamo.Record
	if err := json.Unmarshal([]byte(body), &updates); err != nil {
		return errorResponse(http.StatusBadRequest, "invalid JSON body")
	}
	stored, err := h.adapter.PatchOne(ctx, key, updates)
	if err != nil {
		return adapterErrorResponse(ctx, err)
	}
	return jsonResponse(http.StatusOK, stored)
}

func (h *LambdaHandler) delete(ctx context.Context, key dynamo.Key) events.APIGatewayProxyResponse {
	if err := h.adapter.DeleteOne(ctx, key); err != nil {
		return adapterErrorResponse(ctx, err)
	}
	return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}
}

// HandleSQS ingests queued records, one message at a time: a body is a
// single record object or an array of them. A failing message fails the
// event so the queue redelivers it.
func (h *LambdaHandler) HandleSQS(ctx context.Context, event events.SQSEvent) error {
	for _, msg := range event.Records {
		recs, err := decodeRecords([]byte(msg.Body))
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("message_id", msg.MessageId).Msg("undecodable queue message")
			return err
		}
		if _, err := h.adapter.CreateMany(ctx, recs); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("message_id", msg.MessageId).Msg("record ingest failed")
			return err
		}
	}
	return nil
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "internal server error")
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func errorResponse(status int, msg string) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func adapterErrorResponse(ctx context.Context, err error) events.APIGatewayProxyResponse {
	var verr *dynamo.ValidationError
	var berr *dynamo.BatchValidationError
	if errors.As(err, &verr) || errors.As(err, &berr) {
		return errorResponse(http.StatusBadRequest, err.Error())
	}
	log.Ctx(ctx).Error().Err(err).Msg("record operation failed")
	return errorResponse(http.StatusInternalServerError, "internal server error")
}
