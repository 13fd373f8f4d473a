package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
	llmx "github.com/tanpawarit/Chative-Shop-Assistant/agent/llm"
)

const neutralSentiment = 0.5

// SentimentAnalyzer scores a message from 0 (very negative) to 1 (very
// positive). Model or parse failures degrade to a neutral score.
type SentimentAnalyzer struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

var _ contractx.SentimentAnalyzer = (*SentimentAnalyzer)(nil)

func NewSentimentAnalyzer(ctx context.Context, chatModel einomodel.BaseChatModel, template string) (*SentimentAnalyzer, error) {
	if strings.TrimSpace(template) == "" {
		return nil, fmt.Errorf("%w: sentiment", contractx.ErrPromptMissing)
	}
	runner, err := llmx.CompilePromptGraph(ctx, chatModel, template, "sentiment_analyzer")
	if err != nil {
		return nil, err
	}
	return &SentimentAnalyzer{runner: runner}, nil
}

func (s *SentimentAnalyzer) Analyze(ctx context.Context, message string) (contractx.SentimentResult, error) {
	result := contractx.SentimentResult{Score: neutralSentiment, Message: message}

	out, err := s.runner.Invoke(ctx, map[string]any{"message": message})
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("sentiment model failed, using neutral score")
		result.Reason = fmt.Sprintf("分析失敗: %v", err)
		return result, nil
	}
	if out == nil {
		result.Reason = "分析失敗: empty response"
		return result, nil
	}

	raw, ok := llmx.ExtractJSONObject(out.Content, false)
	if !ok {
		result.Reason = "無法解析情緒分析結果"
		return result, nil
	}

	var parsed struct {
		Score  *float64 `json:"score"`
		Reason string   `json:"reason"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || parsed.Score == nil {
		result.Reason = "無法解析情緒分析結果"
		return result, nil
	}

	result.Score = min(max(*parsed.Score, 0), 1)
	result.Reason = parsed.Reason
	return result, nil
}
