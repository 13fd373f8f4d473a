package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
	llmx "github.com/tanpawarit/Chative-Shop-Assistant/agent/llm"
	metricsx "github.com/tanpawarit/Chative-Shop-Assistant/agent/metrics"
	promptx "github.com/tanpawarit/Chative-Shop-Assistant/agent/prompt"
)

const (
	DefaultNegativeThreshold = 0.4

	// Scores at or below this force should_handover on LLM decisions too.
	strongNegativeThreshold = 0.3

	sentimentConfidence = 0.95
	defaultConfidence   = 0.7
	fallbackConfidence  = 0.5

	reasonNegative     = "檢測到負面情緒，需要人工客服介入"
	reasonDefault      = "LLM路由決策"
	reasonParseFailure = "解析失敗，使用預設路由"
	reasonModelFailure = "路由失敗, 降級到FAQ代理: "
)

const routingSchema = `{
  "type": "object",
  "properties": {
    "agent_type": {"type": "string"},
    "confidence": {"type": "number"},
    "reason": {"type": "string"},
    "keywords": {"type": "array", "items": {"type": "string"}}
  }
}`

var routingSchemaLoader = gojsonschema.NewStringLoader(routingSchema)

type Config struct {
	Model     einomodel.BaseChatModel
	Template  string
	Sentiment contractx.SentimentAnalyzer
	// NegativeThreshold routes straight to handover at or below it.
	NegativeThreshold float64
}

// Router picks an agent with a sentiment pre-check and a classification
// prompt. Route never fails; errors degrade to the FAQ agent.
type Router struct {
	sentiment contractx.SentimentAnalyzer
	runner    compose.Runnable[map[string]any, *schema.Message]
	threshold float64
}

var _ contractx.Router = (*Router)(nil)

func New(ctx context.Context, cfg Config) (*Router, error) {
	if cfg.Sentiment == nil {
		return nil, fmt.Errorf("%w: router sentiment analyzer is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(cfg.Template) == "" {
		return nil, fmt.Errorf("%w: router template", contractx.ErrPromptMissing)
	}

	runner, err := llmx.CompilePromptGraph(ctx, cfg.Model, cfg.Template, "router")
	if err != nil {
		return nil, err
	}

	threshold := cfg.NegativeThreshold
	if threshold <= 0 {
		threshold = DefaultNegativeThreshold
	}
	return &Router{
		sentiment: cfg.Sentiment,
		runner:    runner,
		threshold: threshold,
	}, nil
}

func (r *Router) Route(ctx context.Context, message string, userInfo contractx.UserInfo) contractx.RoutingResult {
	result := r.route(ctx, message, userInfo)

	metricsx.RoutingDecisions.WithLabelValues(result.AgentType.String(), result.Source).Inc()
	event := log.Ctx(ctx).Info().
		Str("agent_type", result.AgentType.String()).
		Float64("confidence", result.Confidence).
		Str("reason", result.Reason).
		Str("source", result.Source)
	if result.SentimentScore != nil {
		event = event.Float64("sentiment_score", *result.SentimentScore)
	}
	event.Msg("routing decision")

	return result
}

func (r *Router) route(ctx context.Context, message string, userInfo contractx.UserInfo) contractx.RoutingResult {
	var score *float64
	sentiment, err := r.sentiment.Analyze(ctx, message)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("sentiment analysis failed, routing without score")
	} else {
		s := sentiment.Score
		score = &s
	}

	if score != nil && *score <= r.threshold {
		return contractx.RoutingResult{
			AgentType:      contractx.AgentTypeHandover,
			Confidence:     sentimentConfidence,
			Reason:         reasonNegative,
			SentimentScore: score,
			ShouldHandover: true,
			Source:         contractx.RouteSourceSentiment,
		}
	}

	out, err := r.runner.Invoke(ctx, map[string]any{
		"user_context": promptx.RouterUserContext(userInfo),
		"message":      message,
	})
	if err != nil {
		return fallback(reasonModelFailure+err.Error(), score)
	}
	if out == nil {
		return fallback(reasonModelFailure+"empty response", score)
	}

	result, err := parseRoutingResponse(out.Content, score)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("content", out.Content).Msg("failed to parse routing response")
		return fallback(reasonParseFailure, score)
	}
	return result
}

type routingAnswer struct {
	AgentType  *string  `json:"agent_type"`
	Confidence *float64 `json:"confidence"`
	Reason     *string  `json:"reason"`
	Keywords   []string `json:"keywords"`
}

var errNoJSON = errors.New("no JSON object in routing response")

// parseRoutingResponse reads the model's JSON decision. Unknown agent
// types fall back to FAQ.
func parseRoutingResponse(content string, score *float64) (contractx.RoutingResult, error) {
	raw, ok := llmx.ExtractJSONObject(content, true)
	if !ok {
		return contractx.RoutingResult{}, errNoJSON
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return contractx.RoutingResult{}, fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err)
	}
	if err := validateRouting(doc); err != nil {
		return contractx.RoutingResult{}, err
	}

	var answer routingAnswer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return contractx.RoutingResult{}, fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err)
	}

	agentType := contractx.AgentTypeFAQ
	if answer.AgentType != nil {
		if t, ok := contractx.ParseAgentType(*answer.AgentType); ok {
			agentType = t
		}
	}
	confidence := defaultConfidence
	if answer.Confidence != nil {
		confidence = *answer.Confidence
	}
	reason := reasonDefault
	if answer.Reason != nil {
		reason = *answer.Reason
	}

	return contractx.RoutingResult{
		AgentType:      agentType,
		Confidence:     confidence,
		Reason:         reason,
		Keywords:       answer.Keywords,
		SentimentScore: score,
		ShouldHandover: agentType == contractx.AgentTypeHandover || (score != nil && *score <= strongNegativeThreshold),
		Source:         contractx.RouteSourceLLM,
	}, nil
}

func validateRouting(doc map[string]any) error {
	result, err := gojsonschema.Validate(routingSchemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s", contractx.ErrSchemaViolation, strings.Join(errs, "; "))
	}
	return nil
}

func fallback(reason string, score *float64) contractx.RoutingResult {
	return contractx.RoutingResult{
		AgentType:      contractx.AgentTypeFAQ,
		Confidence:     fallbackConfidence,
		Reason:         reason,
		SentimentScore: score,
		Source:         contractx.RouteSourceFallback,
	}
}
