package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
	metricsx "github.com/tanpawarit/Chative-Shop-Assistant/agent/metrics"
)

// Manager is the tool set of one agent. Registered tools are wrapped so
// every call is counted and internal failures reach the model as a
// structured {"error": ...} result instead of aborting the turn.
type Manager struct {
	agentType contractx.AgentType
	order     []string
	tools     map[string]einotool.InvokableTool
}

func NewManager(agentType contractx.AgentType) *Manager {
	return &Manager{
		agentType: agentType,
		tools:     map[string]einotool.InvokableTool{},
	}
}

func (m *Manager) AgentType() contractx.AgentType { return m.agentType }

func (m *Manager) Register(ctx context.Context, t einotool.InvokableTool) error {
	info, err := t.Info(ctx)
	if err != nil {
		return fmt.Errorf("tool info: %w", err)
	}
	name := strings.TrimSpace(info.Name)
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if _, ok := m.tools[name]; ok {
		return fmt.Errorf("tool %s already registered for agent=%s", name, m.agentType)
	}
	m.tools[name] = &instrumentedTool{name: name, agentType: m.agentType, inner: t}
	m.order = append(m.order, name)
	return nil
}

func (m *Manager) Names() []string {
	return append([]string(nil), m.order...)
}

func (m *Manager) Tools() []einotool.BaseTool {
	out := make([]einotool.BaseTool, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.tools[name])
	}
	return out
}

func (m *Manager) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	out := make([]*schema.ToolInfo, 0, len(m.order))
	for _, name := range m.order {
		info, err := m.tools[name].Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool %s info: %w", name, err)
		}
		out = append(out, info)
	}
	return out, nil
}

// Descriptions renders "- name: desc" lines for the agent prompt.
func (m *Manager) Descriptions(ctx context.Context) string {
	lines := make([]string, 0, len(m.order))
	for _, name := range m.order {
		info, err := m.tools[name].Info(ctx)
		if err != nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", info.Name, info.Desc))
	}
	return strings.Join(lines, "\n")
}

// Execute runs a tool by name. Unknown names yield a message for the
// model rather than an error.
func (m *Manager) Execute(ctx context.Context, name, argumentsInJSON string) (string, error) {
	t, ok := m.tools[name]
	if !ok {
		return "Can not find the tool: " + name, nil
	}
	return t.InvokableRun(ctx, argumentsInJSON)
}

type instrumentedTool struct {
	name      string
	agentType contractx.AgentType
	inner     einotool.InvokableTool
}

func (t *instrumentedTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return t.inner.Info(ctx)
}

func (t *instrumentedTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...einotool.Option) (string, error) {
	logger := log.Ctx(ctx).With().
		Str("agent_type", t.agentType.String()).
		Str("tool", t.name).
		Logger()

	out, err := t.inner.InvokableRun(ctx, argumentsInJSON, opts...)
	if err != nil {
		metricsx.ToolCalls.WithLabelValues(t.name, metricsx.OutcomeError).Inc()
		logger.Warn().Err(err).Msg("tool call failed")
		return errorResult(fmt.Sprintf("%v: %v", contractx.ErrToolFailed, err)), nil
	}

	if msg := resultError(out); msg != "" {
		metricsx.ToolCalls.WithLabelValues(t.name, metricsx.OutcomeUserError).Inc()
		logger.Debug().Str("error", msg).Msg("tool returned user error")
		return out, nil
	}

	metricsx.ToolCalls.WithLabelValues(t.name, metricsx.OutcomeOK).Inc()
	logger.Debug().Msg("tool call ok")
	return out, nil
}

func errorResult(msg string) string {
	raw, _ := json.Marshal(map[string]string{"error": msg})
	return string(raw)
}

func resultError(out string) string {
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(out), &probe); err != nil {
		return ""
	}
	return probe.Error
}
