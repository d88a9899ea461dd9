package kit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestChain_Order(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				order = append(order, name+"_before")
				resp, err := next(ctx, req)
				order = append(order, name+"_after")
				return resp, err
			}
		}
	}

	base := func(_ context.Context, _ any) (any, error) {
		order = append(order, "endpoint")
		return "ok", nil
	}

	chained := Chain(mw("a"), mw("b"), mw("c"))(base)
	resp, err := chained(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp != "ok" {
		t.Fatalf("response: got %v", resp)
	}

	expected := []string{"a_before", "b_before", "c_before", "endpoint", "c_after", "b_after", "a_after"}
	if len(order) != len(expected) {
		t.Fatalf("order length: got %d, want %d", len(order), len(expected))
	}
	for i, v := range expected {
		if order[i] != v {
			t.Fatalf("order[%d]: got %q, want %q", i, order[i], v)
		}
	}
}

func TestChain_ErrorPropagation(t *testing.T) {
	errFail := errors.New("fail")
	base := func(_ context.Context, _ any) (any, error) {
		return nil, errFail
	}

	chained := Chain(Logging(slog.Default(), "base"))(base)
	_, err := chained(context.Background(), nil)
	if !errors.Is(err, errFail) {
		t.Fatalf("error: got %v, want %v", err, errFail)
	}
}

func TestRecovery(t *testing.T) {
	base := func(_ context.Context, _ any) (any, error) {
		panic("boom")
	}
	_, err := Recovery(slog.Default())(base)(context.Background(), nil)
	var p *ErrPanic
	if !errors.As(err, &p) || p.Value != "boom" {
		t.Fatalf("recovery: got %v", err)
	}
}

func TestTracing(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	errFail := errors.New("fail")
	ep := Tracing("query")(func(_ context.Context, req any) (any, error) {
		if req == "bad" {
			return nil, errFail
		}
		return "ok", nil
	})
	ctx := WithRequestID(context.Background(), "req_1")
	ep(ctx, "good")
	ep(ctx, "bad")

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("spans: got %d, want 2", len(spans))
	}
	if spans[0].Name() != "shadowq.query" {
		t.Errorf("name: got %q", spans[0].Name())
	}
	if spans[0].Status().Code == codes.Error {
		t.Error("successful call marked as error")
	}
	if spans[1].Status().Code != codes.Error {
		t.Errorf("failed call status: got %v", spans[1].Status())
	}
}

func TestTimeout(t *testing.T) {
	base := func(ctx context.Context, _ any) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	_, err := Timeout(10*time.Millisecond)(base)(context.Background(), nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("timeout: got %v", err)
	}

	ok := func(ctx context.Context, _ any) (any, error) {
		if _, has := ctx.Deadline(); has {
			return nil, errors.New("unexpected deadline")
		}
		return "ok", nil
	}
	if _, err := Timeout(0)(ok)(context.Background(), nil); err != nil {
		t.Fatalf("zero timeout: %v", err)
	}
}

func TestContext_Defaults(t *testing.T) {
	ctx := context.Background()
	if v := GetTransport(ctx); v != "http" {
		t.Fatalf("default transport: got %q, want 'http'", v)
	}
	if v := GetRequestID(ctx); v != "" {
		t.Fatalf("request_id default: got %q", v)
	}

	ctx = WithRequestID(WithTransport(ctx, "cli"), "req_abc")
	if v := GetTransport(ctx); v != "cli" {
		t.Fatalf("transport: got %q", v)
	}
	if v := GetRequestID(ctx); v != "req_abc" {
		t.Fatalf("request_id: got %q", v)
	}
}

type echoReq struct {
	Say string `json:"say"`
}

func TestRegisterMCPTool(t *testing.T) {
	impl := &mcp.Implementation{Name: "kit-test", Version: "0.1.0"}
	srv := mcp.NewServer(impl, nil)

	tool := &mcp.Tool{
		Name:        "echo",
		Description: "Echo the argument.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"say": map[string]any{"type": "string"}},
		},
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*echoReq)
		if r.Say == "fail" {
			return nil, errors.New("asked to fail")
		}
		return map[string]string{"said": r.Say, "transport": GetTransport(ctx)}, nil
	}
	RegisterMCPTool(srv, tool, endpoint, DecodeJSON[echoReq])

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	session, err := mcp.NewClient(impl, nil).Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "echo", Arguments: map[string]any{"say": "hi"}})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %+v", res.Content)
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(res.Content[0].(*mcp.TextContent).Text), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["said"] != "hi" || out["transport"] != "mcp" {
		t.Fatalf("response: got %v", out)
	}

	res, err = session.CallTool(ctx, &mcp.CallToolParams{Name: "echo", Arguments: map[string]any{"say": "fail"}})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !res.IsError {
		t.Fatalf("want tool error, got %+v", res)
	}
	if tc, ok := res.Content[0].(*mcp.TextContent); !ok || !strings.Contains(tc.Text, "asked to fail") {
		t.Fatalf("tool error text: got %+v", res.Content)
	}
}
