package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Chative-Shop-Assistant/agent/api"
	"github.com/tanpawarit/Chative-Shop-Assistant/agent/chatbot"
	configx "github.com/tanpawarit/Chative-Shop-Assistant/pkg/config"
	logx "github.com/tanpawarit/Chative-Shop-Assistant/pkg/logger"
	_ "github.com/tanpawarit/Chative-Shop-Assistant/pkg/logger/autoload"
)

const defaultQuestion = "You don't provide a question, please type your question in so that the agent can help you"

// Options are interpreted by github.com/jessevdk/go-flags.
type Options struct {
	Question    string `short:"q" long:"question" description:"The question you want to ask the chatbot"`
	UserID      string `long:"user-id" description:"The user ID of the chatbot user"`
	UserName    string `short:"u" long:"user-name" description:"The user name of the chatbot user"`
	Email       string `short:"e" long:"email" description:"The user email of the chatbot user"`
	Interactive bool   `short:"i" long:"interactive" description:"Run the chatbot in interactive mode"`
	Display     bool   `short:"d" long:"display" description:"Show detailed conversation output"`
	Mode        string `short:"m" long:"mode" choice:"AI" choice:"human" default:"AI" description:"Choose between AI agent or live human customer service"`
	Test        bool   `short:"t" long:"test" description:"Run the chatbot in test mode with sample messages"`
	Serve       bool   `long:"serve" description:"Start the HTTP API"`
	Session     string `long:"session" description:"Session id to continue; a new one is generated when empty"`
	Env         string `long:"env" description:"Env file exported before configuration is read"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Name = "chatbot"
	parser.ShortDescription = "Use this agentic AI system as a customer service"
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Env != "" {
		configx.SetEnvFile(opts.Env)
		logx.Init(*configx.MustNew[logx.Config]("LOG"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		log.Error().Err(err).Msg("chatbot failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts Options) error {
	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	bot := chatbot.New(app.Orchestrator,
		chatbot.WithSessionID(opts.Session),
		chatbot.WithDisplay(opts.Display),
	)
	bot.SetUserID(opts.UserID)
	bot.SetUserName(opts.UserName)
	bot.SetEmail(opts.Email)

	ask := func(message string) error {
		resp, err := bot.ProcessSingleUserMessage(ctx, message, nil)
		if err != nil {
			return err
		}
		bot.PrettyPrint(resp)
		return nil
	}

	if opts.Interactive {
		return bot.RunInteractive(ctx, os.Stdin)
	}
	if opts.Test {
		if err := bot.DryRun(ctx, nil, nil); err != nil {
			return err
		}
	}
	if opts.Mode == "human" {
		return ask(chatbot.HumanModeMessage)
	}
	if opts.Question != "" {
		if err := ask(opts.Question); err != nil {
			return err
		}
	}
	if opts.Serve {
		return api.Serve(ctx, *configx.MustNew[api.Config]("HTTP"), app.Orchestrator)
	}
	if opts.Question == "" && !opts.Test {
		return ask(defaultQuestion)
	}
	return nil
}
