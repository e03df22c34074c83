// Command legalens is the command-line front end: route documents, ask
// questions, build and load the embedding corpus, and serve MCP tools.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dgallion1/legalens/internal/app"
	"github.com/dgallion1/legalens/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// cli carries state shared by the subcommands.
type cli struct {
	out      io.Writer
	errOut   io.Writer
	logLevel string
	envFile  string
	log      *slog.Logger
	cfg      config.Config
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}
	root := &cobra.Command{
		Use:           "legalens",
		Short:         "Legal document routing, reference detection and question answering",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		c.routeCmd(),
		c.queryCmd(),
		c.serveMCPCmd(),
		c.embedCmd(),
		c.indexCmd(),
		c.searchCmd(),
		c.uploadCmd(),
	)
	return root
}

func (c *cli) init() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.logLevel))); err != nil {
		return fmt.Errorf("invalid --log-level %q", c.logLevel)
	}
	// Logs go to stderr so stdout stays clean for results and MCP frames.
	c.log = slog.New(slog.NewTextHandler(c.errOut, &slog.HandlerOptions{Level: level}))

	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !os.IsNotExist(err) {
			c.log.Warn("could not load env file", "path", c.envFile, "error", err)
		}
	}
	c.cfg = config.Load()
	return nil
}

func (c *cli) newApp(ctx context.Context, opts app.Options) (*app.App, error) {
	return app.New(ctx, c.cfg, c.log, opts)
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
