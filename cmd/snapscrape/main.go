package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"github.com/use-agent/snapscrape/config"
	"github.com/use-agent/snapscrape/engine"
	"github.com/use-agent/snapscrape/llm"
	"github.com/use-agent/snapscrape/scraper"
)

func main() {
	app := &cli.App{
		Name:  "snapscrape",
		Usage: "screenshot web pages and extract structured data with a vision model",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serveAction,
			},
			{
				Name:  "process",
				Usage: "capture and extract a single URL",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Required: true, Usage: "page to capture"},
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "data type (prompt template)"},
					formatFlag(),
				},
				Action: processAction,
			},
			{
				Name:      "batch",
				Usage:     "capture and extract many URLs concurrently",
				ArgsUsage: "[URL...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "data type (prompt template)"},
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "file with one URL per line"},
					formatFlag(),
				},
				Action: batchAction,
			},
			{
				Name:   "prompts",
				Usage:  "list the available data types",
				Action: promptsAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{Name: "format", Value: "json", Usage: "output format: json or yaml"}
}

// setup loads configuration and installs the logger. CLI commands log to
// stderr so stdout carries only results.
func setup(c *cli.Context, w io.Writer) *config.Config {
	cfg := config.Load()
	if c.Bool("quiet") {
		cfg.Log.Level = "error"
	}
	initLogger(cfg.Log, w)
	return cfg
}

// buildScraper constructs the extractor and the Scraper.
func buildScraper(cfg *config.Config) (*scraper.Scraper, error) {
	extractor, err := llm.New(cfg.VLM, nil)
	if err != nil {
		return nil, err
	}
	if cfg.VLM.APIKey == "" {
		slog.Warn("no vision model API key configured; every extraction will fail", "provider", cfg.VLM.Provider)
	}
	return scraper.NewScraper(cfg, engine.NewRegistryFromConfig(cfg.Screenshot), extractor)
}

func processAction(c *cli.Context) error {
	cfg := setup(c, os.Stderr)
	sc, err := buildScraper(cfg)
	if err != nil {
		return err
	}

	result, err := sc.Process(c.Context, c.String("url"), c.String("type"))
	if err != nil {
		return err
	}
	return writeOutput(os.Stdout, c.String("format"), result)
}

func batchAction(c *cli.Context) error {
	cfg := setup(c, os.Stderr)

	urls := c.Args().Slice()
	if path := c.String("file"); path != "" {
		fromFile, err := readURLFile(path)
		if err != nil {
			return err
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		return cli.Exit("no URLs given: pass them as arguments or with --file", 2)
	}

	sc, err := buildScraper(cfg)
	if err != nil {
		return err
	}
	results := sc.ProcessBatch(c.Context, urls, c.String("type"))
	return writeOutput(os.Stdout, c.String("format"), results)
}

func promptsAction(c *cli.Context) error {
	cfg := setup(c, os.Stderr)
	sc, err := buildScraper(cfg)
	if err != nil {
		return err
	}
	for _, name := range sc.DataTypes() {
		marker := ""
		if name == sc.DefaultDataType() {
			marker = " (default)"
		}
		fmt.Fprintf(os.Stdout, "%s%s\n", name, marker)
	}
	return nil
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig, w io.Writer) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
