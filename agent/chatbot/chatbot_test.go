package chatbot

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
)

type call struct {
	sessionID string
	message   string
	userInfo  contractx.UserInfo
}

type fakeHandler struct {
	calls []call
	err   error
}

func (f *fakeHandler) HandleMessage(ctx context.Context, sessionID, message string, userInfo contractx.UserInfo) (contractx.Response, error) {
	f.calls = append(f.calls, call{sessionID: sessionID, message: message, userInfo: userInfo})
	if f.err != nil {
		return contractx.Response{}, f.err
	}
	s := 0.82
	return contractx.Response{
		Message:        "回覆: " + message,
		AgentType:      contractx.AgentTypeFAQ,
		Confidence:     0.7,
		Reason:         "LLM路由決策",
		SentimentScore: &s,
	}, nil
}

func TestProcessSingleUserMessageMergesUserInfo(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{}
	c := New(h, WithSessionID("cli-1"), WithOutput(&bytes.Buffer{}))
	c.SetUserID("u_123456")
	c.SetUserName("amy")
	c.SetEmail("  ")

	resp, err := c.ProcessSingleUserMessage(context.Background(), "hi", contractx.UserInfo{"email": "a@b.co"})
	require.NoError(t, err)
	assert.Equal(t, "回覆: hi", resp.Message)

	require.Len(t, h.calls, 1)
	assert.Equal(t, "cli-1", h.calls[0].sessionID)
	assert.Equal(t, "u_123456", h.calls[0].userInfo.Get("user_id"))
	assert.Equal(t, "amy", h.calls[0].userInfo.Get("user_name"))
	assert.Equal(t, "a@b.co", h.calls[0].userInfo.Get("email"))
	assert.Empty(t, c.UserInfo().Get("email"), "blank setters must be ignored")
}

func TestNewGeneratesSessionID(t *testing.T) {
	t.Parallel()

	a := New(&fakeHandler{})
	b := New(&fakeHandler{}, WithSessionID("   "))
	assert.NotEmpty(t, a.SessionID())
	assert.NotEqual(t, a.SessionID(), b.SessionID())
}

func TestDryRunUsesDefaults(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{}
	var out bytes.Buffer
	c := New(h, WithOutput(&out))

	require.NoError(t, c.DryRun(context.Background(), nil, nil))
	require.Len(t, h.calls, len(DefaultTestMessages))
	for i, got := range h.calls {
		assert.Equal(t, DefaultTestMessages[i], got.message)
		assert.Equal(t, "測試用戶", got.userInfo.Get("name"))
		assert.Equal(t, "test@example.com", got.userInfo.Get("email"))
	}
	assert.Contains(t, out.String(), "測試 0: 我想查詢訂單 12345")
	assert.Contains(t, out.String(), "情緒分數: 0.82")
}

func TestDryRunStopsOnError(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{err: errors.New("message is empty")}
	c := New(h, WithOutput(&bytes.Buffer{}))

	err := c.DryRun(context.Background(), nil, []string{"a", "b"})
	require.Error(t, err)
	assert.Len(t, h.calls, 1)
}

func TestRunInteractive(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{}
	var out bytes.Buffer
	c := New(h, WithOutput(&out))
	c.SetEmail("me@example.com")

	err := c.RunInteractive(context.Background(), strings.NewReader("退貨政策?\n\n  Q  \nnever sent\n"))
	require.NoError(t, err)

	require.Len(t, h.calls, 1)
	assert.Equal(t, "退貨政策?", h.calls[0].message)
	assert.Equal(t, "me@example.com", h.calls[0].userInfo.Get("email"))
	assert.Contains(t, out.String(), "💬 回應: 回覆: 退貨政策?")
	assert.Contains(t, out.String(), "👋 再見！")
}

func TestRunInteractiveEndsOnEOF(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{}
	c := New(h, WithOutput(&bytes.Buffer{}))
	require.NoError(t, c.RunInteractive(context.Background(), strings.NewReader("hello")))
	assert.Len(t, h.calls, 1)
}

func TestPrettyPrint(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	c := New(&fakeHandler{}, WithOutput(&out), WithDisplay(true), WithSessionID("s"))
	c.PrettyPrint(contractx.Response{
		Message:        "請留下您的 email",
		AgentType:      contractx.AgentTypeHandover,
		Confidence:     0.95,
		Reason:         "檢測到負面情緒，需要人工客服介入",
		ShouldHandover: true,
		Notice:         "我理解您現在可能感到不滿",
	})

	text := out.String()
	assert.Contains(t, text, "代理類型: handover_agent")
	assert.Contains(t, text, "信心度: 0.95")
	assert.Contains(t, text, "轉接真人: true")
	assert.NotContains(t, text, "情緒分數")
	assert.True(t, strings.Index(text, "我理解您現在可能感到不滿") < strings.Index(text, "路由結果"))
}
