package knowledge

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	ProductsPath  string        `split_words:"true" default:"data/raw/ai-eng-test-sample-products.csv"`
	KnowledgePath string        `split_words:"true" default:"data/raw/ai-eng-test-sample-knowledges.csv"`
	OrdersPath    string        `split_words:"true" default:"data/raw/ai-eng-test-sample-order.json"`
	BuildTimeout  time.Duration `split_words:"true" default:"60s"`
}

// Catalog holds every dataset the tools read, plus their search indexes.
type Catalog struct {
	Products  []Product
	Documents []Document
	Orders    OrderBook

	ProductIndex   *Index[Product]
	KnowledgeIndex *Index[Document]
	OrderIndex     *Index[OrderRecord]
}

// NewCatalog indexes already loaded datasets. Indexes stay keyword-only
// until Build is called with a non-nil embedder.
func NewCatalog(products []Product, docs []Document, orders OrderBook, embedder Embedder) *Catalog {
	if orders == nil {
		orders = OrderBook{}
	}
	return &Catalog{
		Products:       products,
		Documents:      docs,
		Orders:         orders,
		ProductIndex:   NewIndex("products", products, func(p Product) string { return p.Text }, embedder),
		KnowledgeIndex: NewIndex("knowledge", docs, func(d Document) string { return d.Text }, embedder),
		OrderIndex:     NewIndex("orders", orders.Records(), func(r OrderRecord) string { return r.Text }, embedder),
	}
}

// Build embeds the three indexes concurrently. A failing index keeps
// working in keyword mode; only context cancellation is returned.
func (c *Catalog) Build(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	builders := []interface {
		Name() string
		Build(context.Context) error
	}{c.ProductIndex, c.KnowledgeIndex, c.OrderIndex}

	for _, b := range builders {
		g.Go(func() error {
			if err := b.Build(gctx); err != nil {
				log.Warn().Err(err).Str("index", b.Name()).Msg("semantic index unavailable, keyword ranking only")
			}
			return gctx.Err()
		})
	}
	return g.Wait()
}

// LoadAll reads the three datasets concurrently and builds their indexes.
func LoadAll(ctx context.Context, cfg Config, embedder Embedder) (*Catalog, error) {
	var (
		products []Product
		docs     []Document
		orders   OrderBook
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = LoadProductsFile(cfg.ProductsPath)
		return err
	})
	g.Go(func() error {
		var err error
		docs, err = LoadKnowledgeFile(cfg.KnowledgePath)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = LoadOrdersFile(cfg.OrdersPath)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	catalog := NewCatalog(products, docs, orders, embedder)

	buildCtx := ctx
	if cfg.BuildTimeout > 0 {
		var cancel context.CancelFunc
		buildCtx, cancel = context.WithTimeout(ctx, cfg.BuildTimeout)
		defer cancel()
	}
	if err := catalog.Build(buildCtx); err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	log.Info().
		Int("products", len(products)).
		Int("documents", len(docs)).
		Int("order_users", len(orders)).
		Bool("semantic", catalog.ProductIndex.Semantic()).
		Msg("catalog loaded")
	return catalog, nil
}
