package apigateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"autoreply-project/internal/app"
	"autoreply-project/internal/domain"
	"autoreply-project/internal/logging"
)

// Handler serves the webhook behind API Gateway.
type Handler struct {
	app          *app.App
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewHandler creates a new API Gateway handler.
func NewHandler(application *app.App, maxBodyBytes int64, logger *slog.Logger) *Handler {
	return &Handler{
		app:          application,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.With("component", "lambda"),
	}
}

// Handle routes API Gateway requests.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if id := req.RequestContext.RequestID; id != "" {
		ctx = logging.WithRequestID(ctx, id)
	}

	h.logger.InfoContext(ctx, "request received",
		"path", req.Path,
		"method", req.HTTPMethod,
	)

	switch {
	case req.Path == "/webhook" && req.HTTPMethod == http.MethodGet:
		return h.handleVerify(ctx, req), nil
	case req.Path == "/webhook" && req.HTTPMethod == http.MethodPost:
		return h.handleMessage(ctx, req), nil
	case req.Path == "/health" && req.HTTPMethod == http.MethodGet:
		return jsonResponse(http.StatusOK, h.app.Health()), nil
	default:
		h.logger.WarnContext(ctx, "route not found",
			"path", req.Path,
			"method", req.HTTPMethod,
		)
		if strings.Contains(header(req, "Accept"), "application/json") {
			return jsonResponse(http.StatusNotFound, map[string]string{
				"error":   "Not Found",
				"message": fmt.Sprintf("Cannot %s %s", req.HTTPMethod, req.Path),
				"code":    "NOT_FOUND",
			}), nil
		}
		return textResponse(http.StatusNotFound, "Page Not Found"), nil
	}
}

func (h *Handler) handleVerify(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	out, err := h.app.Verify(ctx, signatureParams(req), req.QueryStringParameters["echostr"])
	if err != nil {
		return h.errorResponse(ctx, err)
	}
	return textResponse(http.StatusOK, out)
}

func (h *Handler) handleMessage(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	body, err := decodeBody(req)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid base64 body", "error", err)
		return textResponse(http.StatusBadRequest, "Bad Request")
	}
	if h.maxBodyBytes > 0 && int64(len(body)) > h.maxBodyBytes {
		h.logger.WarnContext(ctx, "request body too large", "size", len(body), "limit", h.maxBodyBytes)
		return textResponse(http.StatusRequestEntityTooLarge, "Request Entity Too Large")
	}

	resp, err := h.app.HandleMessage(ctx, app.Request{
		Body:        body,
		ContentType: header(req, "Content-Type"),
		Signature:   signatureParams(req),
	})
	if err != nil {
		return h.errorResponse(ctx, err)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": resp.ContentType},
		Body:       string(resp.Body),
	}
}

func (h *Handler) errorResponse(ctx context.Context, err error) events.APIGatewayProxyResponse {
	if errors.Is(err, domain.ErrInvalidSignature) {
		return textResponse(http.StatusForbidden, "Forbidden")
	}
	h.logger.ErrorContext(ctx, "request failed", "error", err)
	return textResponse(http.StatusInternalServerError, "Internal Server Error")
}

func signatureParams(req events.APIGatewayProxyRequest) app.SignatureParams {
	q := req.QueryStringParameters
	return app.SignatureParams{
		Signature: q["signature"],
		Timestamp: q["timestamp"],
		Nonce:     q["nonce"],
	}
}

func decodeBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), nil
	}
	return base64.StdEncoding.DecodeString(req.Body)
}

// header looks a header up case-insensitively; API Gateway passes names
// as the client sent them.
func header(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	for k, v := range req.MultiValueHeaders {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func textResponse(status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       body,
	}
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal response", "error", err, "status_code", status)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"error":"Internal Server Error","message":"failed to build response"}`,
		}
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}
