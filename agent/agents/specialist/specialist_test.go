package specialist

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
	"github.com/tanpawarit/Chative-Shop-Assistant/agent/knowledge"
	promptx "github.com/tanpawarit/Chative-Shop-Assistant/agent/prompt"
	statex "github.com/tanpawarit/Chative-Shop-Assistant/agent/state"
	toolx "github.com/tanpawarit/Chative-Shop-Assistant/agent/tool"
)

type fakeToolCallingModel struct {
	mu        sync.Mutex
	responses []*schema.Message
	err       error
	idx       int
	inputs    [][]*schema.Message
	boundTool []*schema.ToolInfo
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, append([]*schema.Message(nil), input...))
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	f.boundTool = tools
	return f, nil
}

func toolCallMessage(content, name, args string) *schema.Message {
	return &schema.Message{
		Role:    schema.Assistant,
		Content: content,
		ToolCalls: []schema.ToolCall{{
			Function: schema.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func newRedirectAgent(t *testing.T, fake *fakeToolCallingModel, store statex.Checkpointer, maxToolCalls int) *Agent {
	t.Helper()

	tools, err := toolx.BuildForAgent(context.Background(), contractx.AgentTypeRedirect, toolx.Deps{})
	if err != nil {
		t.Fatalf("BuildForAgent() error = %v", err)
	}
	template, err := promptx.LoadPromptSet().ForAgent(contractx.AgentTypeRedirect)
	if err != nil {
		t.Fatalf("ForAgent() error = %v", err)
	}

	agent, err := New(context.Background(), Config{
		AgentType:      contractx.AgentTypeRedirect,
		Model:          fake,
		Tools:          tools,
		PromptTemplate: template,
		Checkpointer:   store,
		MaxToolCalls:   maxToolCalls,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return agent
}

func TestAgentRunsToolLoopAndSavesThread(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			toolCallMessage("", toolx.NameCheckTopic, `{"query":"  今天天氣如何  "}`),
			schema.AssistantMessage("小明您好，這個問題我們無法回答，但可以協助查詢訂單。", nil),
		},
	}
	store := statex.NewMemoryCheckpointer()
	agent := newRedirectAgent(t, fake, store, 0)

	resp, err := agent.Run(context.Background(), contractx.AgentRequest{
		SessionID: "s1",
		Message:   "我叫小明，今天天氣如何",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.HasPrefix(resp.Message, "小明您好") {
		t.Fatalf("unexpected reply: %q", resp.Message)
	}
	if resp.ToolCalls != 1 {
		t.Fatalf("tool calls = %d, want 1", resp.ToolCalls)
	}
	if resp.UserInfo.Get(contractx.UserInfoName) != "小明" {
		t.Fatalf("expected extracted name, got %v", resp.UserInfo)
	}
	if len(fake.boundTool) != 2 {
		t.Fatalf("expected 2 bound tools, got %d", len(fake.boundTool))
	}

	if len(fake.inputs) != 2 {
		t.Fatalf("expected 2 model calls, got %d", len(fake.inputs))
	}
	sys := fake.inputs[0][0]
	if sys.Role != schema.System || !strings.Contains(sys.Content, "- check_topic: ") || !strings.Contains(sys.Content, "小明") {
		t.Fatalf("unexpected system prompt: %q", sys.Content)
	}
	second := fake.inputs[1]
	last := second[len(second)-1]
	if last.Role != schema.Tool || last.ToolCallID != "call_1" || !strings.Contains(last.Content, `"related_to_shopping":false`) {
		t.Fatalf("unexpected tool result message: %+v", last)
	}

	cp, err := store.Load(context.Background(), statex.ThreadID("s1", contractx.AgentTypeRedirect))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cp.Messages) != 4 {
		t.Fatalf("expected 4 stored messages, got %d", len(cp.Messages))
	}
	if cp.Messages[0].Role != schema.User || cp.Messages[3].Role != schema.Assistant {
		t.Fatalf("unexpected stored roles: %s ... %s", cp.Messages[0].Role, cp.Messages[3].Role)
	}
}

func TestAgentContinuesThread(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			schema.AssistantMessage("第一輪回覆", nil),
			schema.AssistantMessage("第二輪回覆", nil),
		},
	}
	agent := newRedirectAgent(t, fake, statex.NewMemoryCheckpointer(), 0)
	ctx := context.Background()

	if _, err := agent.Run(ctx, contractx.AgentRequest{SessionID: "s2", Message: "my name is Dan"}); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	resp, err := agent.Run(ctx, contractx.AgentRequest{SessionID: "s2", Message: "I live in Taipei"})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if resp.UserInfo.Get(contractx.UserInfoName) != "Dan" || resp.UserInfo.Get(contractx.UserInfoLocation) != "Taipei" {
		t.Fatalf("unexpected user info: %v", resp.UserInfo)
	}
	second := fake.inputs[1]
	// system + user + assistant + user
	if len(second) != 4 || second[1].Content != "my name is Dan" || second[2].Content != "第一輪回覆" {
		t.Fatalf("unexpected second-turn input: %d messages", len(second))
	}
}

func TestAgentToolLimitForcesWrapUp(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			toolCallMessage("", toolx.NameCheckTopic, `{"query":"a"}`),
			toolCallMessage("我先整理目前的資訊給您。", toolx.NameRedirectTopic, `{"query":"a"}`),
		},
	}
	store := statex.NewMemoryCheckpointer()
	agent := newRedirectAgent(t, fake, store, 1)

	resp, err := agent.Run(context.Background(), contractx.AgentRequest{SessionID: "s3", Message: "hello"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Message != "我先整理目前的資訊給您。" {
		t.Fatalf("unexpected reply: %q", resp.Message)
	}

	second := fake.inputs[1]
	notice := second[len(second)-1]
	if notice.Role != schema.System || !strings.Contains(notice.Content, "maximum tool call limit (1)") {
		t.Fatalf("expected wrap-up notice, got %+v", notice)
	}

	cp, err := store.Load(context.Background(), statex.ThreadID("s3", contractx.AgentTypeRedirect))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if last := cp.Messages[len(cp.Messages)-1]; len(last.ToolCalls) != 0 {
		t.Fatal("dangling tool calls must not be persisted")
	}
}

func TestAgentModelFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{err: errors.New("upstream 500")}
	store := statex.NewMemoryCheckpointer()
	agent := newRedirectAgent(t, fake, store, 0)

	_, err := agent.Run(context.Background(), contractx.AgentRequest{SessionID: "s4", Message: "hi"})
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
	if _, err := store.Load(context.Background(), statex.ThreadID("s4", contractx.AgentTypeRedirect)); !errors.Is(err, statex.ErrCheckpointNotFound) {
		t.Fatalf("failed turn must not be persisted, got %v", err)
	}
}

func TestAgentValidatesRequest(t *testing.T) {
	t.Parallel()

	agent := newRedirectAgent(t, &fakeToolCallingModel{}, statex.NewMemoryCheckpointer(), 0)
	if _, err := agent.Run(context.Background(), contractx.AgentRequest{SessionID: "s", Message: "  "}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := agent.Run(context.Background(), contractx.AgentRequest{Message: "hi"}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestTrimHistoryStartsAtUserMessage(t *testing.T) {
	t.Parallel()

	msgs := []*schema.Message{
		schema.UserMessage("u1"),
		toolCallMessage("", "x", "{}"),
		schema.ToolMessage("r", "call_1"),
		schema.AssistantMessage("a1", nil),
		schema.UserMessage("u2"),
		schema.AssistantMessage("a2", nil),
	}
	got := trimHistory(msgs, 4)
	if len(got) != 2 || got[0].Content != "u2" {
		t.Fatalf("unexpected trimmed history: %d messages", len(got))
	}
	if len(trimHistory(msgs, 10)) != len(msgs) {
		t.Fatal("short history must be kept")
	}
}

type fakeFactory struct {
	roles []string
}

func (f *fakeFactory) ChatModel(ctx context.Context, role string) (einomodel.ToolCallingChatModel, error) {
	f.roles = append(f.roles, role)
	return &fakeToolCallingModel{}, nil
}

func TestNewRegistryBuildsAllAgents(t *testing.T) {
	t.Parallel()

	products, _ := knowledge.LoadProducts(strings.NewReader("name,compatibility_notes,url\nArm,VESA,https://x\n"))
	docs, _ := knowledge.LoadKnowledge(strings.NewReader("id,title,content\nk1,t,c\n"))
	orders, _ := knowledge.LoadOrders(strings.NewReader(`{"orders_db":{}}`))

	factory := &fakeFactory{}
	reg, err := NewRegistry(context.Background(), Deps{
		Models:  factory,
		Prompts: promptx.LoadPromptSet(),
		Tools: toolx.Deps{
			Catalog:   knowledge.NewCatalog(products, docs, orders, nil),
			Sentiment: fakeSentiment{},
		},
		Checkpointer: statex.NewMemoryCheckpointer(),
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	for _, agentType := range contractx.AllAgentTypes() {
		a, ok := reg.Agent(agentType)
		if !ok || a.Type() != agentType {
			t.Fatalf("missing agent %s", agentType)
		}
	}
	if _, ok := reg.Agent(contractx.AgentTypeError); ok {
		t.Fatal("error type must not be dispatchable")
	}
	if len(factory.roles) != 5 {
		t.Fatalf("expected 5 model roles, got %v", factory.roles)
	}
}

type fakeSentiment struct{}

func (fakeSentiment) Analyze(ctx context.Context, message string) (contractx.SentimentResult, error) {
	return contractx.SentimentResult{Score: 0.5}, nil
}
