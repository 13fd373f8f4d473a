package contract

import (
	"sort"
	"strings"
)

type AgentType string

const (
	AgentTypeHandover AgentType = "handover_agent"
	AgentTypeOrder    AgentType = "order_agent"
	AgentTypeFAQ      AgentType = "faq_agent"
	AgentTypeProduct  AgentType = "product_agent"
	AgentTypeRedirect AgentType = "redirect_agent"

	// AgentTypeError tags responses produced after an internal failure.
	AgentTypeError AgentType = "error"
)

// Roles that own a model but are not dispatch targets.
const (
	RoleRouter    = "router"
	RoleSentiment = "sentiment"
)

func AllAgentTypes() []AgentType {
	return []AgentType{
		AgentTypeHandover,
		AgentTypeOrder,
		AgentTypeFAQ,
		AgentTypeProduct,
		AgentTypeRedirect,
	}
}

func ParseAgentType(s string) (AgentType, bool) {
	candidate := AgentType(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range AllAgentTypes() {
		if t == candidate {
			return t, true
		}
	}
	return "", false
}

func (t AgentType) String() string {
	return string(t)
}

// Routing sources recorded on a RoutingResult.
const (
	RouteSourceSentiment = "sentiment"
	RouteSourceLLM       = "llm"
	RouteSourceFallback  = "fallback"
)

type RoutingResult struct {
	AgentType      AgentType `json:"agent_type"`
	Confidence     float64   `json:"confidence"`
	Reason         string    `json:"reason"`
	Keywords       []string  `json:"keywords,omitempty"`
	SentimentScore *float64  `json:"sentiment_score"`
	ShouldHandover bool      `json:"should_handover"`
	Source         string    `json:"source,omitempty"`
}

// Well-known UserInfo keys.
const (
	UserInfoName     = "name"
	UserInfoEmail    = "email"
	UserInfoLocation = "location"
	UserInfoUserID   = "user_id"
	UserInfoUserName = "user_name"
)

// UserInfo is the free-form profile accumulated across turns.
type UserInfo map[string]string

func (u UserInfo) Get(key string) string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u[key])
}

func (u UserInfo) Clone() UserInfo {
	out := make(UserInfo, len(u))
	for k, v := range u {
		out[k] = v
	}
	return out
}

// Merge returns a copy of u overlaid with the non-empty values of other.
func (u UserInfo) Merge(other UserInfo) UserInfo {
	out := u.Clone()
	for k, v := range other {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}

// Keys returns the keys in stable order.
func (u UserInfo) Keys() []string {
	keys := make([]string, 0, len(u))
	for k := range u {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type AgentRequest struct {
	SessionID string   `json:"session_id"`
	Message   string   `json:"message"`
	UserInfo  UserInfo `json:"user_info,omitempty"`
}

type AgentResponse struct {
	Message   string   `json:"message"`
	UserInfo  UserInfo `json:"user_info,omitempty"`
	ToolCalls int      `json:"tool_calls"`
}

// Response is the orchestrator's answer for one user message.
type Response struct {
	Message        string    `json:"message"`
	AgentType      AgentType `json:"agent_type"`
	Confidence     float64   `json:"confidence"`
	Reason         string    `json:"reason"`
	SentimentScore *float64  `json:"sentiment_score"`
	ShouldHandover bool      `json:"should_handover"`
	Notice         string    `json:"notice,omitempty"`
}

type SentimentResult struct {
	Score   float64 `json:"score"`
	Reason  string  `json:"reason"`
	Message string  `json:"message"`
}
