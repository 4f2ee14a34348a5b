// Command autoblock runs the inline autoformat engine: as a websocket server
// for editing surfaces, over recorded input scripts, or on a single string.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/jcorbin/autoblock/internal/autoformat"
	"github.com/jcorbin/autoblock/internal/mdrender"
)

// CLI is the autoblock command line grammar.
type CLI struct {
	Config   kong.ConfigFlag `help:"JSON configuration file providing flag defaults." placeholder:"FILE"`
	LogLevel string          `help:"Minimum log level." enum:"debug,info,warn,error" default:"info" env:"AUTOBLOCK_LOG_LEVEL"`
	LogJSON  bool            `name:"log-json" help:"Log JSON records instead of text." env:"AUTOBLOCK_LOG_JSON"`

	Serve    ServeCmd    `cmd:"" help:"Serve editing surfaces over websockets."`
	Replay   ReplayCmd   `cmd:"" help:"Apply a recorded input script to a document."`
	Classify ClassifyCmd `cmd:"" help:"Print the shorthand match for some content."`
}

// EngineFlags configure the autoformat engine.
type EngineFlags struct {
	Renderer string `help:"Markdown renderer." enum:"goldmark,blackfriday" default:"goldmark" env:"AUTOBLOCK_RENDERER"`
	Lists    string `help:"List shorthand mode: keep the first item, or every item." enum:"single,multi" default:"single" env:"AUTOBLOCK_LISTS"`
	Sentinel string `help:"Token that commits shorthand." default:"&nbsp;" env:"AUTOBLOCK_SENTINEL"`
}

func (ef EngineFlags) engine(logger *slog.Logger) (*autoformat.Engine, error) {
	r, err := mdrender.New(ef.Renderer)
	if err != nil {
		return nil, err
	}
	return autoformat.New(r, autoformat.Config{
		Sentinel:       ef.Sentinel,
		MultiItemLists: ef.Lists == "multi",
		Logger:         logger,
	}), nil
}

// env is bound into every command's Run method.
type env struct {
	ctx    context.Context
	logger *slog.Logger
	out    io.Writer
}

func (cli *CLI) logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cli.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cli.LogJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func newParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	return kong.New(cli, append([]kong.Option{
		kong.Name("autoblock"),
		kong.Description("Inline markdown shorthand to structured blocks."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Configuration(kong.JSON, configPaths()...),
	}, options...)...)
}

func main() {
	var cli CLI
	parser, err := newParser(&cli)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = kctx.Run(&env{
		ctx:    ctx,
		logger: cli.logger(os.Stderr),
		out:    os.Stdout,
	})
	kctx.FatalIfErrorf(err)
}
