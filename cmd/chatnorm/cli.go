package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/hupe1980/chatnorm/config"
	"github.com/hupe1980/chatnorm/logging"
	"github.com/hupe1980/chatnorm/model"
	"github.com/jessevdk/go-flags"
)

// Options are the command line flags. The struct tags are interpreted by
// github.com/jessevdk/go-flags; flags that are set override the config file.
type Options struct {
	Config          string        `short:"f" long:"config" description:"provider config YAML path"`
	Provider        string        `short:"p" long:"provider" description:"openai, compat (custom), anthropic or mock"`
	BaseURL         string        `long:"base-url" description:"API base URL"`
	APIKey          string        `long:"api-key" description:"API key"`
	Model           string        `short:"m" long:"model" description:"model name"`
	System          string        `short:"s" long:"system" description:"system prompt"`
	MaxTokens       int64         `long:"max-tokens" description:"completion token budget"`
	Temperature     float64       `short:"t" long:"temperature" description:"sampling temperature"`
	ReasoningEffort string        `long:"reasoning-effort" description:"reasoning effort (low, medium, high)"`
	Stream          bool          `long:"stream" description:"use streaming mode"`
	Timeout         time.Duration `long:"timeout" description:"overall call timeout"`
	Verbose         bool          `short:"v" long:"verbose" description:"debug logging"`

	Args struct {
		Prompt []string `positional-arg-name:"prompt"`
	} `positional-args:"yes"`
}

// run executes the command and returns the process exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts := &Options{}
	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, err)
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	applyFlags(parser, opts, cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	prompt := strings.Join(opts.Args.Prompt, " ")
	if prompt == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		prompt = strings.TrimSpace(string(data))
	}
	if prompt == "" {
		fmt.Fprintln(stderr, "no prompt given")
		return 2
	}

	logger := cfg.NewLogger(stderr).WithComponent("cli")
	provider, err := cfg.NewProvider(logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	resp := provider.Chat(ctx, buildRequest(opts.System, prompt))
	if err := writeResponse(stdout, resp); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if resp.Failed() {
		return 1
	}
	return 0
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(parser *flags.Parser, opts *Options, cfg *config.Config) {
	isSet := func(long string) bool {
		o := parser.FindOptionByLongName(long)
		return o != nil && o.IsSet()
	}
	if opts.Provider != "" {
		cfg.Provider = opts.Provider
	}
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.APIKey != "" {
		cfg.APIKey = opts.APIKey
	}
	if opts.Model != "" {
		cfg.Model = opts.Model
	}
	if isSet("max-tokens") {
		cfg.MaxTokens = opts.MaxTokens
	}
	if isSet("temperature") {
		cfg.Temperature = opts.Temperature
	}
	if opts.ReasoningEffort != "" {
		cfg.ReasoningEffort = opts.ReasoningEffort
	}
	if opts.Stream {
		cfg.Stream = true
	}
	if isSet("timeout") {
		cfg.Timeout = opts.Timeout
	}
	if opts.Verbose {
		cfg.Log.Level = logging.LogLevelDebug.String()
	}
}

func buildRequest(system, prompt string) model.Request {
	var msgs []model.Message
	if system != "" {
		msgs = append(msgs, model.Message{Role: "system", Content: system})
	}
	msgs = append(msgs, model.Message{Role: "user", Content: prompt})
	return model.Request{Messages: msgs}
}

func writeResponse(w io.Writer, resp model.Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
