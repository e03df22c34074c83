package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/dgallion1/legalens/internal/app"
	"github.com/dgallion1/legalens/internal/apperr"
	"github.com/dgallion1/legalens/internal/lawdata"
	"github.com/dgallion1/legalens/internal/mcptools"
)

// failWith prints an *apperr.Error as JSON before returning it.
func (c *cli) failWith(err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		c.printJSON(ae)
	}
	return err
}

func (c *cli) routeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route <input>",
		Short: "Classify an input, extract its text and detect legal references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			routed, err := a.Router.Route(cmd.Context(), args[0])
			if err != nil {
				return c.failWith(err)
			}
			return c.printJSON(routed)
		},
	}
}

func (c *cli) queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <question or file>",
		Short: "Answer a legal question with retrieved sections and citations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(cmd.Context(), app.Options{LLM: true, Database: true})
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.Agent.Process(cmd.Context(), args[0])
			if err != nil {
				return c.failWith(err)
			}
			return c.printJSON(out)
		},
	}
}

func (c *cli) serveMCPCmd() *cobra.Command {
	var withQuery bool
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the legalens tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(cmd.Context(), app.Options{LLM: withQuery, Database: withQuery})
			if err != nil {
				return err
			}
			defer a.Close()

			srv := mcp.NewServer(&mcp.Implementation{Name: "legalens", Version: "0.1.0"}, nil)
			deps := mcptools.Deps{Router: a.Router, Matcher: a.Matcher}
			if a.Agent != nil {
				deps.Querier = a.Agent
			}
			mcptools.Register(srv, deps)

			c.log.Info("mcp.serving", "transport", "stdio", "legal_query", deps.Querier != nil)
			return srv.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
	cmd.Flags().BoolVar(&withQuery, "with-query", false, "also expose legal_query (needs LLM credentials)")
	return cmd
}

func (c *cli) embedCmd() *cobra.Command {
	var lawsDir, outFile string
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed the law corpus into a JSONL file, resuming a partial run",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Embedder == nil {
				return fmt.Errorf("GEMINI_API_KEY is required for embeddings")
			}

			laws, err := lawdata.LoadLaws(lawsDir)
			if err != nil {
				return err
			}
			if outFile == "" {
				outFile = c.cfg.EmbeddingsFile
			}
			n, err := lawdata.BuildJSONL(cmd.Context(), a.Embedder, laws, outFile, lawdata.BuildOptions{
				BatchSize: c.cfg.EmbeddingBatchSize,
				Log:       c.log,
			})
			if err != nil {
				return err
			}
			c.log.Info("embed.done", "laws", len(laws), "written", n, "out", outFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&lawsDir, "laws", "data/laws", "directory of JSON law files")
	cmd.Flags().StringVar(&outFile, "out", "", "output JSONL (default EMBEDDINGS_LOCAL_FILE)")
	return cmd
}

func (c *cli) indexCmd() *cobra.Command {
	var inFile string
	var batch int
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Load an embeddings JSONL file into the pgvector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			a, err := c.newApp(cmd.Context(), app.Options{Database: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if inFile == "" {
				inFile = c.cfg.EmbeddingsFile
			}
			recs, err := lawdata.ReadJSONL(inFile)
			if err != nil {
				return err
			}
			if err := a.Store.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			if err := lawdata.LoadIntoStore(cmd.Context(), a.Store, recs, batch); err != nil {
				return err
			}
			c.log.Info("index.done", "records", len(recs), "in", inFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&inFile, "in", "", "embeddings JSONL (default EMBEDDINGS_LOCAL_FILE)")
	cmd.Flags().IntVar(&batch, "batch", 100, "rows per upsert batch")
	return cmd
}

func (c *cli) searchCmd() *cobra.Command {
	var query string
	var k int
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Print the nearest law sections for a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			if query == "" {
				return fmt.Errorf("--query is required")
			}
			if c.cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			if k > 0 {
				c.cfg.RetrievalK = k
			}
			a, err := c.newApp(cmd.Context(), app.Options{Database: true})
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Retriever == nil {
				return fmt.Errorf("GEMINI_API_KEY is required for query embeddings")
			}

			docs, err := a.Retriever.Retrieve(cmd.Context(), query)
			if err != nil {
				return err
			}
			for i, d := range docs {
				fmt.Fprintf(c.out, "%d. %s (score %.4f)\n", i+1, d.ID, d.Metadata.Score)
				if err := c.printJSON(d.Metadata); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "search text")
	cmd.Flags().IntVar(&k, "k", 0, "number of neighbours (default RETRIEVAL_K)")
	return cmd
}

func (c *cli) uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file to the configured storage backend and print its URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer f.Close()

			if c.cfg.StorageType == "none" {
				return fmt.Errorf("STORAGE_TYPE is none; set local or s3")
			}
			a, err := c.newApp(cmd.Context(), app.Options{Storage: true})
			if err != nil {
				return err
			}
			defer a.Close()

			key, err := a.Storage.Upload(cmd.Context(), uuid.New(), filepath.Base(path), f)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, a.Storage.URI(key))
			return nil
		},
	}
}
