package chatbot

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
)

// HumanModeMessage is sent on behalf of the user in human mode.
const HumanModeMessage = "我要真人客服"

var (
	DefaultTestMessages = []string{
		"我想查詢訂單 12345",
		"user_id=u_123456",
		"我想抱怨一下，很煩，這根本不是我的訂單！",
		"我想問其他品牌的產品",
		"你們的退貨政策是什麼？",
		"這個螢幕支援什麼尺寸？",
	}

	DefaultTestUserInfo = contractx.UserInfo{
		contractx.UserInfoName:  "測試用戶",
		contractx.UserInfoEmail: "test@example.com",
	}
)

// Handler answers one message for a session.
type Handler interface {
	HandleMessage(ctx context.Context, sessionID string, message string, userInfo contractx.UserInfo) (contractx.Response, error)
}

type Option func(*Chatbot)

func WithSessionID(id string) Option {
	return func(c *Chatbot) {
		if strings.TrimSpace(id) != "" {
			c.sessionID = strings.TrimSpace(id)
		}
	}
}

// WithDisplay prints routing details beyond the answer.
func WithDisplay(display bool) Option {
	return func(c *Chatbot) { c.display = display }
}

func WithOutput(w io.Writer) Option {
	return func(c *Chatbot) { c.out = w }
}

// Chatbot is the terminal front end over the orchestrator.
type Chatbot struct {
	handler   Handler
	sessionID string
	userInfo  contractx.UserInfo
	display   bool
	out       io.Writer
}

func New(handler Handler, opts ...Option) *Chatbot {
	c := &Chatbot{
		handler:   handler,
		sessionID: uuid.NewString(),
		userInfo:  contractx.UserInfo{},
		out:       os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Chatbot) SessionID() string { return c.sessionID }

func (c *Chatbot) UserInfo() contractx.UserInfo { return c.userInfo.Clone() }

func (c *Chatbot) SetUserID(id string) { c.set(contractx.UserInfoUserID, id) }

func (c *Chatbot) SetUserName(name string) { c.set(contractx.UserInfoUserName, name) }

func (c *Chatbot) SetEmail(email string) { c.set(contractx.UserInfoEmail, email) }

func (c *Chatbot) set(key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		c.userInfo[key] = v
	}
}

// ProcessSingleUserMessage sends one message with the chatbot's user info
// overlaid by userInfo.
func (c *Chatbot) ProcessSingleUserMessage(ctx context.Context, message string, userInfo contractx.UserInfo) (contractx.Response, error) {
	return c.handler.HandleMessage(ctx, c.sessionID, message, c.userInfo.Merge(userInfo))
}

// DryRun sends each test message in order and prints the responses. Nil
// arguments use the defaults.
func (c *Chatbot) DryRun(ctx context.Context, userInfo contractx.UserInfo, messages []string) error {
	if len(userInfo) == 0 {
		userInfo = DefaultTestUserInfo
	}
	if len(messages) == 0 {
		messages = DefaultTestMessages
	}

	rule := strings.Repeat("=", 60)
	for i, message := range messages {
		fmt.Fprintf(c.out, "\n%s\n測試 %d: %s\n%s\n", rule, i, message, rule)
		resp, err := c.ProcessSingleUserMessage(ctx, message, userInfo)
		if err != nil {
			return fmt.Errorf("dry run message %d: %w", i, err)
		}
		c.PrettyPrint(resp)
	}
	return nil
}

// RunInteractive reads lines from in until exit, q, EOF or cancellation.
func (c *Chatbot) RunInteractive(ctx context.Context, in io.Reader) error {
	fmt.Fprint(c.out, "💬 進入互動模式 (輸入 'exit' 或 'q' 結束)\n\n")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, "👤 你: ")
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "exit", "q":
			fmt.Fprintln(c.out, "👋 再見！")
			return nil
		case "":
			continue
		}

		resp, err := c.ProcessSingleUserMessage(ctx, input, nil)
		if err != nil {
			fmt.Fprintf(c.out, "⚠️ %v\n", err)
			continue
		}
		c.PrettyPrint(resp)
	}
}

func (c *Chatbot) PrettyPrint(resp contractx.Response) {
	if resp.Notice != "" {
		fmt.Fprintf(c.out, "\n%s\n", resp.Notice)
	}
	fmt.Fprintln(c.out, "\n🤖 路由結果:")
	fmt.Fprintf(c.out, "   代理類型: %s\n", resp.AgentType)
	fmt.Fprintf(c.out, "   信心度: %.2f\n", resp.Confidence)
	fmt.Fprintf(c.out, "   理由: %s\n", resp.Reason)
	if resp.SentimentScore != nil {
		fmt.Fprintf(c.out, "   情緒分數: %.2f\n", *resp.SentimentScore)
	}
	if c.display {
		fmt.Fprintf(c.out, "   轉接真人: %t\n", resp.ShouldHandover)
		fmt.Fprintf(c.out, "   session: %s\n", c.sessionID)
	}
	if resp.Message != "" {
		fmt.Fprintf(c.out, "\n💬 回應: %s\n", resp.Message)
	}
}
