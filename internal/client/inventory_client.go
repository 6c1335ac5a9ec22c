package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/models"
)

// DefaultTimeout bounds every call to the inventory service.
const DefaultTimeout = 5 * time.Second

// Outcome classifies a remote call. Rejected means the inventory service
// answered and said no; Unreachable means we do not know what it did.
type Outcome string

const (
	OutcomeSucceeded   Outcome = "succeeded"
	OutcomeRejected    Outcome = "rejected"
	OutcomeUnreachable Outcome = "unreachable"
)

// Result is the transport-level part of every call.
type Result struct {
	Outcome    Outcome
	StatusCode int
	// Body holds the decoded error payload of a rejection.
	Body map[string]any
	// Err is the cause of an Unreachable outcome.
	Err error
}

type CheckResult struct {
	Result
	Available         bool
	AvailableQuantity int
	Price             decimal.Decimal
}

type ReserveResult struct {
	Result
	RemainingAvailable int
}

type ReleaseResult struct {
	Result
	AvailableQuantity int
}

type InventoryClient struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

func NewInventoryClient(baseURL string, timeout time.Duration) *InventoryClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &InventoryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tracer: otel.Tracer("stockflow/client"),
	}
}

// Check asks whether quantity units of productID are available
func (c *InventoryClient) Check(ctx context.Context, productID string, quantity int) CheckResult {
	var body models.CheckResponse
	res := c.post(ctx, "inventory.check", "/inventory/check", models.StockRequest{ProductID: productID, Quantity: &quantity}, &body)
	return CheckResult{
		Result:            res,
		Available:         body.Available,
		AvailableQuantity: body.AvailableQuantity,
		Price:             body.Price,
	}
}

// Reserve claims quantity units of productID
func (c *InventoryClient) Reserve(ctx context.Context, productID string, quantity int) ReserveResult {
	var body models.ReserveResponse
	res := c.post(ctx, "inventory.reserve", "/inventory/reserve", models.StockRequest{ProductID: productID, Quantity: &quantity}, &body)
	return ReserveResult{Result: res, RemainingAvailable: body.RemainingAvailable}
}

// Release returns quantity units of productID
func (c *InventoryClient) Release(ctx context.Context, productID string, quantity int) ReleaseResult {
	var body models.ReleaseResponse
	res := c.post(ctx, "inventory.release", "/inventory/release", models.StockRequest{ProductID: productID, Quantity: &quantity}, &body)
	return ReleaseResult{Result: res, AvailableQuantity: body.AvailableQuantity}
}

func (c *InventoryClient) post(ctx context.Context, spanName, path string, payload, out any) Result {
	ctx, span := c.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	res := c.do(ctx, path, payload, out)

	span.SetAttributes(
		attribute.String("http.url", c.baseURL+path),
		attribute.String("inventory.outcome", string(res.Outcome)),
		attribute.Int("http.status_code", res.StatusCode),
	)
	if res.Outcome == OutcomeUnreachable {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	return res
}

func (c *InventoryClient) do(ctx context.Context, path string, payload, out any) Result {
	data, err := json.Marshal(payload)
	if err != nil {
		return unreachable(0, fmt.Errorf("failed to encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return unreachable(0, fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return unreachable(0, fmt.Errorf("failed to call inventory service: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return unreachable(resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	switch {
	case resp.StatusCode >= 500:
		return unreachable(resp.StatusCode, fmt.Errorf("inventory service returned status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		body := map[string]any{}
		// A rejection with an unreadable body is still a rejection.
		_ = json.Unmarshal(raw, &body)
		return Result{Outcome: OutcomeRejected, StatusCode: resp.StatusCode, Body: body}
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.Unmarshal(raw, out); err != nil {
			return unreachable(resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
		}
		return Result{Outcome: OutcomeSucceeded, StatusCode: resp.StatusCode}
	default:
		return unreachable(resp.StatusCode, fmt.Errorf("inventory service returned status %d", resp.StatusCode))
	}
}

func unreachable(status int, err error) Result {
	return Result{Outcome: OutcomeUnreachable, StatusCode: status, Err: err}
}
