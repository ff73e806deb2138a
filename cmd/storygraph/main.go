// Command storygraph builds story graphs from gamebook documents and
// queries the graphs it has stored.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/dgallion1/storygraph/internal/config"
	"github.com/dgallion1/storygraph/internal/graphstore"
	"github.com/dgallion1/storygraph/internal/pipeline"
)

// Globals are the flags shared by every command.
type Globals struct {
	Backend         string `name:"backend" env:"STORE_BACKEND" default:"sqlite" enum:"sqlite,pathstore,memory" help:"Graph store backend (sqlite, pathstore, memory)"`
	SQLitePath      string `name:"sqlite-path" env:"SQLITE_PATH" default:"storygraph.db" type:"path" help:"SQLite database file"`
	PathstoreURL    string `name:"pathstore-url" env:"PATHSTORE_URL" default:"http://localhost:8080" help:"Pathstore base URL"`
	PathstoreAPIKey string `name:"pathstore-api-key" env:"PATHSTORE_API_KEY" help:"Pathstore API key"`
	LogLevel        string `name:"log-level" env:"LOG_LEVEL" default:"warn" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat       string `name:"log-format" env:"LOG_FORMAT" default:"text" enum:"json,text" help:"Log format"`

	out    io.Writer
	errOut io.Writer
}

func (g *Globals) config() config.Config {
	return config.Config{
		StoreBackend:    g.Backend,
		SQLitePath:      g.SQLitePath,
		PathstoreURL:    g.PathstoreURL,
		PathstoreAPIKey: g.PathstoreAPIKey,
		LogLevel:        g.LogLevel,
		LogFormat:       g.LogFormat,
	}
}

func (g *Globals) logger() *slog.Logger {
	return g.config().NewLogger(g.errOut)
}

func (g *Globals) openStore(ctx context.Context) (graphstore.Store, error) {
	cfg := g.config()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return pipeline.OpenStore(ctx, cfg, g.logger())
}

// CLI defines the command-line interface using Kong.
type CLI struct {
	Globals

	Build   BuildCmd   `cmd:"" help:"Build a story graph from a document and store it"`
	Labels  LabelsCmd  `cmd:"" help:"Print the decoded page labels of a document"`
	Inspect InspectCmd `cmd:"" help:"Show how one page is grouped, classified and linked"`
	Paths   PathsCmd   `cmd:"" help:"List paths between tagged pages of a stored graph"`
	Report  ReportCmd  `cmd:"" help:"Print the report for a stored graph"`
	List    ListCmd    `cmd:"" help:"List stored graphs"`
	Delete  DeleteCmd  `cmd:"" help:"Delete a stored graph"`
}

func newParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("storygraph"),
		kong.Description("Build and query gamebook story graphs"),
		kong.UsageOnError(),
	}, options...)
	return kong.New(cli, options...)
}

func main() {
	cli := CLI{Globals: Globals{out: os.Stdout, errOut: os.Stderr}}
	parser, err := newParser(&cli)
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	err = ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
