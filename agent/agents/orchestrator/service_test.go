package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Shop-Assistant/agent/state"
)

type fakeRouter struct {
	result   contractx.RoutingResult
	calls    int
	lastInfo contractx.UserInfo
}

func (f *fakeRouter) Route(ctx context.Context, message string, userInfo contractx.UserInfo) contractx.RoutingResult {
	f.calls++
	f.lastInfo = userInfo.Clone()
	return f.result
}

type fakeAgent struct {
	agentType contractx.AgentType
	resp      contractx.AgentResponse
	err       error
	calls     int
	lastReq   contractx.AgentRequest
}

func (f *fakeAgent) Type() contractx.AgentType { return f.agentType }

func (f *fakeAgent) Run(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return contractx.AgentResponse{}, f.err
	}
	return f.resp, nil
}

type fakeRegistry map[contractx.AgentType]contractx.Agent

func (f fakeRegistry) Agent(agentType contractx.AgentType) (contractx.Agent, bool) {
	a, ok := f[agentType]
	return a, ok
}

type failingCheckpointer struct {
	loadErr error
	saveErr error
}

func (f failingCheckpointer) Load(ctx context.Context, threadID string) (*statex.Checkpoint, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return nil, statex.ErrCheckpointNotFound
}

func (f failingCheckpointer) Save(ctx context.Context, cp *statex.Checkpoint) error {
	return f.saveErr
}

func (f failingCheckpointer) Delete(ctx context.Context, threadID string) error {
	return nil
}

func score(v float64) *float64 { return &v }

func newTestOrchestrator(t *testing.T, router contractx.Router, agents contractx.Registry, profiles statex.Checkpointer) *Orchestrator {
	t.Helper()

	o, err := New(router, agents, profiles)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	o.now = func() time.Time {
		return time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC)
	}
	return o
}

func TestHandleMessageInvalidInput(t *testing.T) {
	t.Parallel()

	router := &fakeRouter{}
	o := newTestOrchestrator(t, router, fakeRegistry{}, nil)

	_, err := o.HandleMessage(context.Background(), "   ", "hello", nil)
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}

	_, err = o.HandleMessage(context.Background(), "s1", "    ", nil)
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
	if router.calls != 0 {
		t.Fatalf("router must not be called on invalid input, got %d", router.calls)
	}
}

func TestHandleMessageDispatchesRoutedAgent(t *testing.T) {
	t.Parallel()

	router := &fakeRouter{result: contractx.RoutingResult{
		AgentType:      contractx.AgentTypeProduct,
		Confidence:     0.9,
		Reason:         "詢問規格",
		SentimentScore: score(0.8),
		Source:         contractx.RouteSourceLLM,
	}}
	product := &fakeAgent{
		agentType: contractx.AgentTypeProduct,
		resp: contractx.AgentResponse{
			Message:  "  MA-01 支援 VESA 100。  ",
			UserInfo: contractx.UserInfo{"name": "Amy"},
		},
	}
	faq := &fakeAgent{agentType: contractx.AgentTypeFAQ}
	profiles := statex.NewMemoryCheckpointer()

	o := newTestOrchestrator(t, router, fakeRegistry{
		contractx.AgentTypeProduct: product,
		contractx.AgentTypeFAQ:     faq,
	}, profiles)

	resp, err := o.HandleMessage(context.Background(), "session-1", "MA-01 支援 VESA 100 嗎", contractx.UserInfo{"email": "amy@example.com"})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if resp.Message != "MA-01 支援 VESA 100。" || resp.AgentType != contractx.AgentTypeProduct {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Confidence != 0.9 || resp.Reason != "詢問規格" || resp.SentimentScore == nil || *resp.SentimentScore != 0.8 {
		t.Fatalf("routing fields not copied: %+v", resp)
	}
	if resp.Notice != "" || resp.ShouldHandover {
		t.Fatalf("unexpected handover fields: %+v", resp)
	}
	if product.calls != 1 || faq.calls != 0 {
		t.Fatalf("dispatch counts product=%d faq=%d", product.calls, faq.calls)
	}
	if product.lastReq.SessionID != "session-1" || product.lastReq.UserInfo.Get("email") != "amy@example.com" {
		t.Fatalf("unexpected agent request: %+v", product.lastReq)
	}

	cp, err := profiles.Load(context.Background(), statex.ProfileThreadID("session-1"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cp.UserInfo.Get("name") != "Amy" || cp.UserInfo.Get("email") != "amy@example.com" {
		t.Fatalf("profile not merged: %v", cp.UserInfo)
	}
}

func TestHandleMessageUsesStoredProfile(t *testing.T) {
	t.Parallel()

	profiles := statex.NewMemoryCheckpointer()
	seed := statex.NewCheckpoint(statex.ProfileThreadID("s2"), time.Now())
	seed.UserInfo = contractx.UserInfo{"name": "Ben", "location": "Taipei"}
	if err := profiles.Save(context.Background(), seed); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	router := &fakeRouter{result: contractx.RoutingResult{AgentType: contractx.AgentTypeFAQ, Confidence: 0.7}}
	faq := &fakeAgent{agentType: contractx.AgentTypeFAQ, resp: contractx.AgentResponse{Message: "ok"}}
	o := newTestOrchestrator(t, router, fakeRegistry{contractx.AgentTypeFAQ: faq}, profiles)

	if _, err := o.HandleMessage(context.Background(), "s2", "退貨政策?", contractx.UserInfo{"name": "Benny"}); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if router.lastInfo.Get("name") != "Benny" || router.lastInfo.Get("location") != "Taipei" {
		t.Fatalf("router saw %v", router.lastInfo)
	}
}

func TestHandleMessageHandoverNotice(t *testing.T) {
	t.Parallel()

	router := &fakeRouter{result: contractx.RoutingResult{
		AgentType:      contractx.AgentTypeHandover,
		Confidence:     0.95,
		Reason:         "檢測到負面情緒，需要人工客服介入",
		SentimentScore: score(0.15),
		ShouldHandover: true,
		Source:         contractx.RouteSourceSentiment,
	}}
	handover := &fakeAgent{agentType: contractx.AgentTypeHandover, resp: contractx.AgentResponse{Message: "請留下您的 email"}}
	o := newTestOrchestrator(t, router, fakeRegistry{contractx.AgentTypeHandover: handover}, nil)

	resp, err := o.HandleMessage(context.Background(), "s3", "太爛了", nil)
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !resp.ShouldHandover || resp.Message != "請留下您的 email" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !strings.HasPrefix(resp.Notice, "我理解您現在可能感到不滿") || !strings.Contains(resp.Notice, "情緒分析: 0.15 / 1.0") || !strings.Contains(resp.Notice, "檢測到負面情緒") {
		t.Fatalf("unexpected notice: %q", resp.Notice)
	}
}

func TestHandleMessageHandoverFailureFallback(t *testing.T) {
	t.Parallel()

	router := &fakeRouter{result: contractx.RoutingResult{AgentType: contractx.AgentTypeHandover, Confidence: 0.8, ShouldHandover: true}}
	handover := &fakeAgent{agentType: contractx.AgentTypeHandover, err: errors.New("model down")}
	o := newTestOrchestrator(t, router, fakeRegistry{contractx.AgentTypeHandover: handover}, nil)

	resp, err := o.HandleMessage(context.Background(), "s4", "我要真人客服", nil)
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if resp.Message != "我們已記錄您的問題，客服將盡快與您聯繫。" || resp.AgentType != contractx.AgentTypeHandover {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Notice != "" {
		t.Fatalf("notice requires a sentiment score, got %q", resp.Notice)
	}
}

func TestHandleMessageAgentFailure(t *testing.T) {
	t.Parallel()

	router := &fakeRouter{result: contractx.RoutingResult{AgentType: contractx.AgentTypeOrder, Confidence: 0.9}}
	order := &fakeAgent{agentType: contractx.AgentTypeOrder, err: errors.New("boom")}
	o := newTestOrchestrator(t, router, fakeRegistry{contractx.AgentTypeOrder: order}, nil)

	resp, err := o.HandleMessage(context.Background(), "s5", "查訂單", nil)
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if resp.AgentType != contractx.AgentTypeError || resp.Confidence != 0 || resp.Reason != "系統錯誤" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Message != "抱歉, 處理您的請求時發生錯誤: boom" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestHandleMessageMissingAgent(t *testing.T) {
	t.Parallel()

	router := &fakeRouter{result: contractx.RoutingResult{AgentType: contractx.AgentTypeRedirect}}
	o := newTestOrchestrator(t, router, fakeRegistry{}, nil)

	resp, err := o.HandleMessage(context.Background(), "s6", "天氣", nil)
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if resp.AgentType != contractx.AgentTypeError || !strings.Contains(resp.Message, "unknown agent type") {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHandleMessageProfileStoreFailures(t *testing.T) {
	t.Parallel()

	router := &fakeRouter{result: contractx.RoutingResult{AgentType: contractx.AgentTypeFAQ}}
	faq := &fakeAgent{agentType: contractx.AgentTypeFAQ, resp: contractx.AgentResponse{Message: "ok"}}

	o := newTestOrchestrator(t, router, fakeRegistry{contractx.AgentTypeFAQ: faq},
		failingCheckpointer{saveErr: errors.New("redis down")})
	resp, err := o.HandleMessage(context.Background(), "s7", "hi", nil)
	if err != nil || resp.Message != "ok" {
		t.Fatalf("save failure must not fail the turn: %+v, %v", resp, err)
	}

	o = newTestOrchestrator(t, router, fakeRegistry{contractx.AgentTypeFAQ: faq},
		failingCheckpointer{loadErr: errors.New("redis down")})
	resp, err = o.HandleMessage(context.Background(), "s7", "hi", nil)
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if resp.AgentType != contractx.AgentTypeError {
		t.Fatalf("load failure must produce the error response, got %+v", resp)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, fakeRegistry{}, nil); err == nil {
		t.Fatal("expected error for nil router")
	}
	if _, err := New(&fakeRouter{}, nil, nil); err == nil {
		t.Fatal("expected error for nil registry")
	}
}
