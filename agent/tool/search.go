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
	NameProductSearch         = "product_search"
	NameProductSemanticSearch = "product_semantic_search"
	NameKnowledgeSearch       = "knowledge_search"

	maxKeywordProducts = 5
	defaultTopK        = 3
	previewRunes       = 200
)

type SearchInput struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

func (in *SearchInput) topK() int {
	if in.K <= 0 {
		return defaultTopK
	}
	return min(in.K, 10)
}

type ProductMatch struct {
	Title              string `json:"title"`
	CompatibilityNotes string `json:"compatibility_notes"`
	Link               string `json:"link"`
}

type ProductSearchOutput struct {
	Message  string         `json:"message"`
	Products []ProductMatch `json:"products"`
}

// DocumentsOutput carries ranked documents rendered for the model.
type DocumentsOutput struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

var searchParams = map[string]*schema.ParameterInfo{
	"query": {
		Type:     schema.String,
		Desc:     "User question or keywords to search for",
		Required: true,
	},
	"k": {
		Type: schema.Integer,
		Desc: "Number of results to return (default: 3)",
	},
}

func newProductSearchTool(products []knowledge.Product) einotool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: NameProductSearch,
			Desc: "Search for product information and return relevant product results based on the user's query.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": searchParams["query"],
			}),
		},
		func(ctx context.Context, in *SearchInput) (*ProductSearchOutput, error) {
			query := strings.ToLower(strings.TrimSpace(in.Query))
			if query == "" {
				return nil, fmt.Errorf("query is required")
			}

			matches := make([]ProductMatch, 0, maxKeywordProducts)
			for _, p := range products {
				if strings.Contains(strings.ToLower(p.Name), query) ||
					strings.Contains(strings.ToLower(p.CompatibilityNotes), query) {
					matches = append(matches, ProductMatch{
						Title:              p.Name,
						CompatibilityNotes: p.CompatibilityNotes,
						Link:               p.URL,
					})
				}
				if len(matches) >= maxKeywordProducts {
					break
				}
			}

			if len(matches) == 0 {
				return &ProductSearchOutput{
					Message:  "No relevant product information was found.",
					Products: matches,
				}, nil
			}

			lines := make([]string, 0, len(matches))
			for _, m := range matches {
				lines = append(lines, fmt.Sprintf("- %s: %s", m.Title, m.Link))
			}
			return &ProductSearchOutput{
				Message:  "Found related products:\n" + strings.Join(lines, "\n"),
				Products: matches,
			}, nil
		},
	)
}

func newProductSemanticSearchTool(index *knowledge.Index[knowledge.Product]) einotool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name:        NameProductSemanticSearch,
			Desc:        "Search product information through database",
			ParamsOneOf: schema.NewParamsOneOfByParams(searchParams),
		},
		func(ctx context.Context, in *SearchInput) (*DocumentsOutput, error) {
			if strings.TrimSpace(in.Query) == "" {
				return nil, fmt.Errorf("query is required")
			}
			hits := index.Search(ctx, in.Query, in.topK())
			views := make([]docView, 0, len(hits))
			for _, h := range hits {
				views = append(views, docView{title: h.Item.Name, source: h.Item.URL, content: h.Item.Text})
			}
			return &DocumentsOutput{Message: formatDocuments(views, true), Count: len(views)}, nil
		},
	)
}

func newKnowledgeSearchTool(index *knowledge.Index[knowledge.Document]) einotool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name:        NameKnowledgeSearch,
			Desc:        "Search the FAQ knowledge base for policies, warranty, shipping and usage questions",
			ParamsOneOf: schema.NewParamsOneOfByParams(searchParams),
		},
		func(ctx context.Context, in *SearchInput) (*DocumentsOutput, error) {
			if strings.TrimSpace(in.Query) == "" {
				return nil, fmt.Errorf("query is required")
			}
			hits := index.Search(ctx, in.Query, in.topK())
			views := make([]docView, 0, len(hits))
			for _, h := range hits {
				views = append(views, docView{title: h.Item.Title, source: h.Item.Source, content: h.Item.Text})
			}
			return &DocumentsOutput{Message: formatDocuments(views, true), Count: len(views)}, nil
		},
	)
}

type docView struct {
	title   string
	source  string
	content string
}

// formatDocuments renders ranked documents as numbered blocks, optionally
// truncating each body to a preview.
func formatDocuments(docs []docView, preview bool) string {
	header := fmt.Sprintf("在知識庫中找到 %d 筆相關文件:\n\n", len(docs))
	if len(docs) == 0 {
		return header + "Documents not found"
	}

	blocks := make([]string, 0, len(docs))
	for i, d := range docs {
		var meta strings.Builder
		if d.title != "" {
			fmt.Fprintf(&meta, " [標題: %s]", d.title)
		}
		if d.source != "" {
			fmt.Fprintf(&meta, " [來源: %s]", d.source)
		}

		content := d.content
		if preview {
			if runes := []rune(content); len(runes) > previewRunes {
				content = string(runes[:previewRunes]) + "..."
			}
		}
		blocks = append(blocks, fmt.Sprintf("文件 %d:%s\n%s", i+1, meta.String(), content))
	}
	return header + strings.Join(blocks, "\n\n")
}
