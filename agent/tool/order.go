package tool

import (
	"context"
	"fmt"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/Chative-Shop-Assistant/agent/knowledge"
)

const (
	NameOrderSearch       = "order_search"
	NameCheckOrderMissing = "check_order_missing"
)

type QueryInput struct {
	Query string `json:"query"`
}

type OrderSummary struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	ETA     string `json:"eta"`
	Items   []any  `json:"items"`
}

// OrderSearchOutput is either a structured lookup result, a semantic
// search rendering in Message, or a user-facing Error.
type OrderSearchOutput struct {
	UserID  string           `json:"user_id,omitempty"`
	Orders  []OrderSummary   `json:"orders,omitempty"`
	Order   *knowledge.Order `json:"order,omitempty"`
	Message string           `json:"message,omitempty"`
	Error   string           `json:"error,omitempty"`
}

type MissingOutput struct {
	Missing []string `json:"missing"`
}

// paramValue reads "key=value" from a lowercased query; the value runs
// to the next comma.
func paramValue(queryLower, key string) string {
	marker := key + "="
	idx := strings.LastIndex(queryLower, marker)
	if idx < 0 {
		return ""
	}
	rest := queryLower[idx+len(marker):]
	if end := strings.Index(rest, ","); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func structuredOrderLookup(book knowledge.OrderBook, query string) *OrderSearchOutput {
	lower := strings.ToLower(query)
	userID := paramValue(lower, "user_id")
	orderID := paramValue(lower, "order_id")

	if userID == "" {
		return &OrderSearchOutput{Error: "缺少 user_id，請提供 user_id 以查詢訂單。"}
	}

	_, orders, ok := book.Lookup(userID)
	if !ok {
		return &OrderSearchOutput{Error: fmt.Sprintf("查無此 user_id (%s) 的訂單紀錄，請確認是否正確。", userID)}
	}
	if len(orders) == 0 {
		return &OrderSearchOutput{Message: fmt.Sprintf("user_id=%s 沒有任何訂單紀錄。", userID)}
	}

	if orderID == "" {
		summaries := make([]OrderSummary, 0, len(orders))
		for _, o := range orders {
			summaries = append(summaries, OrderSummary{
				OrderID: o.OrderID,
				Status:  o.Status,
				ETA:     o.ETA,
				Items:   o.Items,
			})
		}
		return &OrderSearchOutput{UserID: userID, Orders: summaries}
	}

	for _, o := range orders {
		if strings.EqualFold(o.OrderID, orderID) {
			order := o
			return &OrderSearchOutput{UserID: userID, Order: &order}
		}
	}
	return &OrderSearchOutput{
		Error: fmt.Sprintf("user_id=%s 下查無此訂單 %s，請確認 order_id 是否正確。", userID, orderID),
	}
}

func newOrderSearchTool(catalog *knowledge.Catalog) einotool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: NameOrderSearch,
			Desc: "Search order information through database. Use \"user_id=<id>, order_id=<id>\" for an exact lookup.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "Either \"user_id=u_123456, order_id=JTCG-202508-10001\" or a free text description of the order",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *QueryInput) (*OrderSearchOutput, error) {
			if strings.TrimSpace(in.Query) == "" {
				return nil, fmt.Errorf("query is required")
			}
			if strings.Contains(strings.ToLower(in.Query), "user_id=") {
				return structuredOrderLookup(catalog.Orders, in.Query), nil
			}

			hits := catalog.OrderIndex.Search(ctx, in.Query, defaultTopK)
			views := make([]docView, 0, len(hits))
			for _, h := range hits {
				views = append(views, docView{content: h.Item.Text})
			}
			return &OrderSearchOutput{Message: formatDocuments(views, false)}, nil
		},
	)
}

func newCheckOrderMissingTool() einotool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: NameCheckOrderMissing,
			Desc: "Check if we're missing needed information: user_id, order_id",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "Everything the user has provided about the order so far",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *QueryInput) (*MissingOutput, error) {
			lower := strings.ToLower(in.Query)
			missing := []string{}
			switch {
			case !strings.Contains(lower, "user_id"):
				missing = append(missing, "user_id")
			case !strings.Contains(lower, "order_id"):
				missing = append(missing, "order_id")
			}
			return &MissingOutput{Missing: missing}, nil
		},
	)
}
