package prompt

import (
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
)

func TestLoadPromptSetHasEveryAgent(t *testing.T) {
	t.Parallel()

	set := LoadPromptSet()
	if !strings.Contains(set.Router, "{message}") || !strings.Contains(set.Router, "{user_context}") {
		t.Fatal("router prompt must reference {message} and {user_context}")
	}
	if !strings.Contains(set.Sentiment, "{message}") {
		t.Fatal("sentiment prompt must reference {message}")
	}
	for _, agentType := range contractx.AllAgentTypes() {
		text, err := set.ForAgent(agentType)
		if err != nil {
			t.Fatalf("ForAgent(%s) error = %v", agentType, err)
		}
		if !strings.Contains(text, "{tool_descriptions}") {
			t.Fatalf("prompt for %s must reference {tool_descriptions}", agentType)
		}
	}
}

func TestForAgentMissing(t *testing.T) {
	t.Parallel()

	_, err := PromptSet{}.ForAgent(contractx.AgentTypeFAQ)
	if !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("expected ErrPromptMissing, got %v", err)
	}
}

func TestUserContext(t *testing.T) {
	t.Parallel()

	if got := UserContext(nil); got != "（尚無使用者資訊）" {
		t.Fatalf("UserContext(nil) = %q", got)
	}
	got := UserContext(contractx.UserInfo{"name": "Amy", "email": "amy@example.com"})
	if got != "- 姓名: Amy\n- 信箱: amy@example.com" {
		t.Fatalf("UserContext() = %q", got)
	}
}

func TestRouterUserContext(t *testing.T) {
	t.Parallel()

	if got := RouterUserContext(contractx.UserInfo{}); got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}
	got := RouterUserContext(contractx.UserInfo{"name": "Amy", "location": "Taipei", "user_id": "u_1"})
	if got != "\n用戶資訊: 姓名: Amy, 地點: Taipei" {
		t.Fatalf("RouterUserContext() = %q", got)
	}
}
