package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"github.com/tanpawarit/Chative-Shop-Assistant/agent/agents/orchestrator"
	routerx "github.com/tanpawarit/Chative-Shop-Assistant/agent/agents/router"
	"github.com/tanpawarit/Chative-Shop-Assistant/agent/agents/specialist"
	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
	"github.com/tanpawarit/Chative-Shop-Assistant/agent/knowledge"
	llmx "github.com/tanpawarit/Chative-Shop-Assistant/agent/llm"
	promptx "github.com/tanpawarit/Chative-Shop-Assistant/agent/prompt"
	statex "github.com/tanpawarit/Chative-Shop-Assistant/agent/state"
	toolx "github.com/tanpawarit/Chative-Shop-Assistant/agent/tool"
	configx "github.com/tanpawarit/Chative-Shop-Assistant/pkg/config"
	postgresx "github.com/tanpawarit/Chative-Shop-Assistant/pkg/postgres"
	qstashx "github.com/tanpawarit/Chative-Shop-Assistant/pkg/qstash"
	redisx "github.com/tanpawarit/Chative-Shop-Assistant/pkg/redis"
)

const (
	ticketSinkLog      = "log"
	ticketSinkQStash   = "qstash"
	ticketSinkPostgres = "postgres"
)

type TicketConfig struct {
	Sink string `default:"log"`
}

type App struct {
	Orchestrator *orchestrator.Orchestrator
	closers      []io.Closer
}

func (a *App) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("close resource")
		}
	}
}

// buildApp wires configuration, datasets, storage and models into the
// orchestrator.
func buildApp(ctx context.Context) (*App, error) {
	app := &App{}
	fail := func(err error) (*App, error) {
		app.Close()
		return nil, err
	}

	llmCfg := configx.MustNew[llmx.Config]("LLM")
	models, err := llmx.NewFactory(ctx, *llmCfg)
	if err != nil {
		return fail(err)
	}

	var embedder knowledge.Embedder
	if client := models.EmbeddingClient(); client != nil {
		embedder = knowledge.NewOpenAIEmbedder(client, knowledge.WithEmbeddingModel(llmCfg.EmbeddingModel))
	}
	catalog, err := knowledge.LoadAll(ctx, *configx.MustNew[knowledge.Config]("DATA"), embedder)
	if err != nil {
		return fail(err)
	}

	checkpointCfg := configx.MustNew[statex.Config]("CHECKPOINT")
	ticketCfg := configx.MustNew[TicketConfig]("TICKET")
	checkpointKind := strings.ToLower(strings.TrimSpace(checkpointCfg.Kind))
	sinkKind := strings.ToLower(strings.TrimSpace(ticketCfg.Sink))

	var backends statex.Backends
	switch checkpointKind {
	case statex.KindRedis:
		client, err := configx.MustNew[redisx.Config]("REDIS").New(ctx)
		if err != nil {
			return fail(fmt.Errorf("connect redis: %w", err))
		}
		app.closers = append(app.closers, client)
		backends.Redis = client
	case statex.KindUpstash:
		backends.Upstash = configx.MustNew[statex.UpstashConfig]("UPSTASH_REDIS_REST")
	}

	var db *bun.DB
	if checkpointKind == statex.KindPostgres || sinkKind == ticketSinkPostgres {
		db, err = configx.MustNew[postgresx.Config]("POSTGRES").New(ctx)
		if err != nil {
			return fail(fmt.Errorf("connect postgres: %w", err))
		}
		app.closers = append(app.closers, db)
		backends.DB = db
	}

	checkpointer, err := statex.New(ctx, *checkpointCfg, backends)
	if err != nil {
		return fail(err)
	}

	tickets, err := newTicketSink(ctx, sinkKind, db)
	if err != nil {
		return fail(err)
	}

	prompts := promptx.LoadPromptSet()
	rules := toolx.DefaultRules()

	sentimentModel, err := models.ChatModel(ctx, contractx.RoleSentiment)
	if err != nil {
		return fail(err)
	}
	sentiment, err := toolx.NewSentimentAnalyzer(ctx, sentimentModel, prompts.Sentiment)
	if err != nil {
		return fail(err)
	}

	routerModel, err := models.ChatModel(ctx, contractx.RoleRouter)
	if err != nil {
		return fail(err)
	}
	router, err := routerx.New(ctx, routerx.Config{
		Model:             routerModel,
		Template:          prompts.Router,
		Sentiment:         sentiment,
		NegativeThreshold: rules.NegativeThreshold,
	})
	if err != nil {
		return fail(err)
	}

	agents, err := specialist.NewRegistry(ctx, specialist.Deps{
		Models:  models,
		Prompts: prompts,
		Tools: toolx.Deps{
			Catalog:   catalog,
			Sentiment: sentiment,
			Tickets:   tickets,
			Rules:     &rules,
		},
		Checkpointer: checkpointer,
		MaxToolCalls: llmCfg.MaxToolCalls,
	})
	if err != nil {
		return fail(err)
	}

	app.Orchestrator, err = orchestrator.New(router, agents, checkpointer)
	if err != nil {
		return fail(err)
	}

	log.Info().
		Str("checkpointer", checkpointKind).
		Str("ticket_sink", tickets.Name()).
		Int("agents", len(contractx.AllAgentTypes())).
		Msg("chatbot ready")
	return app, nil
}

func newTicketSink(ctx context.Context, kind string, db *bun.DB) (toolx.TicketSink, error) {
	switch kind {
	case ticketSinkLog, "":
		return toolx.LogTicketSink{}, nil
	case ticketSinkQStash:
		cfg := configx.MustNew[qstashx.Config]("QSTASH")
		client, err := qstashx.NewClient(*cfg)
		if err != nil {
			return nil, fmt.Errorf("qstash client: %w", err)
		}
		return toolx.NewQStashTicketSink(client, cfg.Destination)
	case ticketSinkPostgres:
		sink := toolx.NewPostgresTicketSink(db)
		if err := sink.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure ticket schema: %w", err)
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unsupported ticket sink: %s", kind)
	}
}
