package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/sentiment.txt
	sentimentRaw string

	//go:embed template/faq.txt
	faqRaw string

	//go:embed template/order.txt
	orderRaw string

	//go:embed template/product.txt
	productRaw string

	//go:embed template/handover.txt
	handoverRaw string

	//go:embed template/redirect.txt
	redirectRaw string
)

// PromptSet holds the FString templates for every model role.
// Router expects {user_context} and {message}; Sentiment expects {message};
// agent prompts expect {user_context} and {tool_descriptions}.
type PromptSet struct {
	Router    string
	Sentiment string
	Agents    map[contractx.AgentType]string
}

// LoadPromptSet returns the embedded prompts, trimmed.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Router:    strings.TrimSpace(routerRaw),
		Sentiment: strings.TrimSpace(sentimentRaw),
		Agents: map[contractx.AgentType]string{
			contractx.AgentTypeFAQ:      strings.TrimSpace(faqRaw),
			contractx.AgentTypeOrder:    strings.TrimSpace(orderRaw),
			contractx.AgentTypeProduct:  strings.TrimSpace(productRaw),
			contractx.AgentTypeHandover: strings.TrimSpace(handoverRaw),
			contractx.AgentTypeRedirect: strings.TrimSpace(redirectRaw),
		},
	}
}

func (p PromptSet) ForAgent(agentType contractx.AgentType) (string, error) {
	text := strings.TrimSpace(p.Agents[agentType])
	if text == "" {
		return "", fmt.Errorf("%w: agent=%s", contractx.ErrPromptMissing, agentType)
	}
	return text, nil
}

// UserContext renders the profile lines injected into agent prompts.
func UserContext(info contractx.UserInfo) string {
	labels := []struct {
		key   string
		label string
	}{
		{contractx.UserInfoName, "姓名"},
		{contractx.UserInfoUserName, "使用者名稱"},
		{contractx.UserInfoEmail, "信箱"},
		{contractx.UserInfoLocation, "地點"},
		{contractx.UserInfoUserID, "user_id"},
	}

	lines := make([]string, 0, len(labels))
	for _, l := range labels {
		if v := info.Get(l.key); v != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", l.label, v))
		}
	}
	if len(lines) == 0 {
		return "（尚無使用者資訊）"
	}
	return strings.Join(lines, "\n")
}

// RouterUserContext renders the one-line profile used by the routing prompt.
func RouterUserContext(info contractx.UserInfo) string {
	parts := make([]string, 0, 3)
	if v := info.Get(contractx.UserInfoName); v != "" {
		parts = append(parts, "姓名: "+v)
	}
	if v := info.Get(contractx.UserInfoEmail); v != "" {
		parts = append(parts, "信箱: "+v)
	}
	if v := info.Get(contractx.UserInfoLocation); v != "" {
		parts = append(parts, "地點: "+v)
	}
	if len(parts) == 0 {
		return ""
	}
	return "\n用戶資訊: " + strings.Join(parts, ", ")
}
