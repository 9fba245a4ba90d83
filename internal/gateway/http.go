package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mwhitford/leadchat/internal/circuitbreaker"
	"github.com/mwhitford/leadchat/internal/config"
	"github.com/mwhitford/leadchat/internal/middleware"
)

// HTTPGateway calls the dialogue service over JSON/HTTP. Calls carry an
// explicit timeout and run behind a circuit breaker, so a hung gateway
// cannot hold a conversation's single in-flight turn slot forever.
type HTTPGateway struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewHTTPGateway creates a gateway client from config.
func NewHTTPGateway(cfg *config.GatewayConfig, logger *zap.Logger) *HTTPGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPGateway{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: circuitbreaker.New("dialogue-gateway", &circuitbreaker.Config{
			FailureThreshold:    5,
			SuccessThreshold:    2,
			OpenTimeout:         30 * time.Second,
			HalfOpenMaxRequests: 2,
		}, logger),
		logger: logger,
	}
}

// wireRequest is the on-the-wire request shape.
type wireRequest struct {
	Model string `json:"model,omitempty"`
	*TurnRequest
}

// wireError is the error envelope the dialogue service returns on non-2xx.
type wireError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CompleteTurn sends one dialogue turn and decodes the reply. Transport
// failures and non-2xx statuses surface as errors; a semantic failure rides
// in the reply's Error field and is the caller's to contain.
func (g *HTTPGateway) CompleteTurn(ctx context.Context, req *TurnRequest) (*TurnReply, error) {
	var reply *TurnReply

	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var execErr error
		reply, execErr = g.doCompleteTurn(ctx, req)
		return execErr
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// Ping reports whether the gateway can currently serve turns. An open
// circuit means it cannot; the health endpoint reports that as degraded.
func (g *HTTPGateway) Ping(ctx context.Context) error {
	if g.breaker.IsOpen() {
		return circuitbreaker.ErrCircuitOpen
	}
	return nil
}

func (g *HTTPGateway) doCompleteTurn(ctx context.Context, req *TurnRequest) (*TurnReply, error) {
	body, err := json.Marshal(&wireRequest{Model: g.model, TurnRequest: req})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal turn request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	middleware.PropagateHeaders(ctx, httpReq)

	start := time.Now()
	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("dialogue gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp wireError
		if jsonErr := json.Unmarshal(respBody, &errResp); jsonErr == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("dialogue gateway error: %s - %s", errResp.Error.Type, errResp.Error.Message)
		}
		return nil, fmt.Errorf("dialogue gateway error: status %d", resp.StatusCode)
	}

	var reply TurnReply
	if err := json.Unmarshal(respBody, &reply); err != nil {
		return nil, fmt.Errorf("failed to parse gateway response: %w", err)
	}

	g.logger.Debug("dialogue turn completed",
		zap.Duration("duration", time.Since(start)),
		zap.String("phase", reply.ConversationPhase),
		zap.Int("extracted_fields", len(reply.ExtractedData)),
	)

	return &reply, nil
}
