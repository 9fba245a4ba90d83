package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mwhitford/leadchat/internal/config"
	"github.com/mwhitford/leadchat/internal/domain"
	"github.com/mwhitford/leadchat/internal/middleware"
)

func newTestGateway(url string) *HTTPGateway {
	return NewHTTPGateway(&config.GatewayConfig{
		URL:     url,
		APIKey:  "test-key",
		Model:   "dialogue-1",
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

func TestCompleteTurnSuccess(t *testing.T) {
	var gotAuth, gotModel, gotLatest string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var req struct {
			Model               string                `json:"model"`
			ConversationHistory []domain.HistoryEntry `json:"conversationHistory"`
			LatestMessage       string                `json:"latestMessage"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		gotModel = req.Model
		gotLatest = req.LatestMessage

		json.NewEncoder(w).Encode(&TurnReply{
			Text:              "What trade are you in?",
			ExtractedData:     map[string]any{"name": "Dale"},
			ConversationPhase: "discovery",
		})
	}))
	defer server.Close()

	g := newTestGateway(server.URL)
	reply, err := g.CompleteTurn(context.Background(), &TurnRequest{
		ConversationHistory: []domain.HistoryEntry{{Role: "user", Content: "hi"}},
		LeadRecord:          domain.NewLeadRecord(),
		LatestMessage:       "hi, I'm Dale",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotModel != "dialogue-1" {
		t.Errorf("expected model forwarded, got %q", gotModel)
	}
	if gotLatest != "hi, I'm Dale" {
		t.Errorf("expected latest message forwarded, got %q", gotLatest)
	}
	if reply.Text != "What trade are you in?" {
		t.Errorf("unexpected reply text %q", reply.Text)
	}
	if reply.ExtractedData["name"] != "Dale" {
		t.Errorf("unexpected extracted data %v", reply.ExtractedData)
	}
}

func TestCompleteTurnErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"type":"rate_limit","message":"slow down"}}`))
	}))
	defer server.Close()

	g := newTestGateway(server.URL)
	_, err := g.CompleteTurn(context.Background(), &TurnRequest{LatestMessage: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "rate_limit") || !strings.Contains(err.Error(), "slow down") {
		t.Errorf("expected decoded error envelope, got %v", err)
	}
}

func TestCompleteTurnNonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	g := newTestGateway(server.URL)
	_, err := g.CompleteTurn(context.Background(), &TurnRequest{LatestMessage: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 502") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestCompleteTurnSemanticErrorPassedThrough(t *testing.T) {
	// A 200 with an error field is a successful call; containment is the
	// session's job.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(&TurnReply{Error: "model overloaded"})
	}))
	defer server.Close()

	g := newTestGateway(server.URL)
	reply, err := g.CompleteTurn(context.Background(), &TurnRequest{LatestMessage: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Error != "model overloaded" {
		t.Errorf("expected semantic error in reply, got %q", reply.Error)
	}
}

func TestCompleteTurnOpensCircuit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	g := newTestGateway(server.URL)
	for i := 0; i < 5; i++ {
		if _, err := g.CompleteTurn(context.Background(), &TurnRequest{LatestMessage: "hi"}); err == nil {
			t.Fatal("expected error")
		}
	}

	if err := g.Ping(context.Background()); err == nil {
		t.Fatal("expected ping failure while circuit open")
	}
}

func TestCompleteTurnPropagatesCorrelationID(t *testing.T) {
	var gotCorrelation string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCorrelation = r.Header.Get(middleware.CorrelationIDHeader)
		json.NewEncoder(w).Encode(&TurnReply{Text: "ok"})
	}))
	defer server.Close()

	g := newTestGateway(server.URL)
	ctx := middleware.WithCorrelationID(context.Background(), "visit-7")
	if _, err := g.CompleteTurn(ctx, &TurnRequest{LatestMessage: "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCorrelation != "visit-7" {
		t.Errorf("expected correlation header forwarded, got %q", gotCorrelation)
	}
}
