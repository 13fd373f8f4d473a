package tool

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
)

const (
	NameDetectSentiment = "detect_sentiment"
	NameHandoffHuman    = "handoff_human"

	handoffHistoryLines = 5
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+`)

type SentimentInput struct {
	Message string `json:"message"`
}

type SentimentOutput struct {
	Message string  `json:"message"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason,omitempty"`
}

type HandoffInput struct {
	Email   string   `json:"email"`
	Reason  string   `json:"reason,omitempty"`
	History []string `json:"history,omitempty"`
}

type HandoffOutput struct {
	Message  string `json:"message,omitempty"`
	Email    string `json:"email,omitempty"`
	TicketID string `json:"ticket_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

func newDetectSentimentTool(analyzer contractx.SentimentAnalyzer, threshold float64) einotool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: NameDetectSentiment,
			Desc: "Detect sentiment and trigger human transfer if necessary.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"message": {
					Type:     schema.String,
					Desc:     "The user's latest message",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *SentimentInput) (*SentimentOutput, error) {
			res, err := analyzer.Analyze(ctx, in.Message)
			if err != nil {
				return nil, err
			}
			msg := "情緒正常"
			if res.Score < threshold {
				msg = "使用者情緒高，建議轉接客服"
			}
			return &SentimentOutput{Message: msg, Score: res.Score, Reason: res.Reason}, nil
		},
	)
}

func newHandoffHumanTool(sink TicketSink) einotool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: NameHandoffHuman,
			Desc: "Transfer the conversation to a human customer service agent. Requires the user's email.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"email": {
					Type:     schema.String,
					Desc:     "Email the human agent will reply to",
					Required: true,
				},
				"reason": {
					Type: schema.String,
					Desc: "Short reason for the transfer",
				},
				"history": {
					Type:     schema.Array,
					Desc:     "Recent conversation lines to hand over",
					ElemInfo: &schema.ParameterInfo{Type: schema.String},
				},
			}),
		},
		func(ctx context.Context, in *HandoffInput) (*HandoffOutput, error) {
			email := strings.TrimSpace(in.Email)
			if !emailPattern.MatchString(email) {
				return &HandoffOutput{Error: "請提供一個有效的 Email 以便轉接真人客服。"}, nil
			}

			ticket := Ticket{
				TicketID:  uuid.NewString()[:8],
				Email:     email,
				Reason:    strings.TrimSpace(in.Reason),
				Summary:   summarizeHistory(in.History),
				CreatedAt: time.Now().UTC(),
			}
			if err := submitTicket(ctx, sink, ticket); err != nil {
				return nil, err
			}

			return &HandoffOutput{
				Message:  fmt.Sprintf("已為您轉接真人客服，請稍候（案件編號：%s）。", ticket.TicketID),
				Email:    email,
				TicketID: ticket.TicketID,
			}, nil
		},
	)
}

func summarizeHistory(history []string) string {
	lines := make([]string, 0, len(history))
	for _, h := range history {
		if h = strings.TrimSpace(h); h != "" {
			lines = append(lines, h)
		}
	}
	if len(lines) == 0 {
		return "（無對話紀錄）"
	}
	if len(lines) > handoffHistoryLines {
		lines = lines[len(lines)-handoffHistoryLines:]
	}
	return strings.Join(lines, "\n")
}
