package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/NandaniSingh69/PharmaTrack/alternatives"
	"github.com/NandaniSingh69/PharmaTrack/data/sqlitestore"
	"github.com/NandaniSingh69/PharmaTrack/logging"
	"github.com/NandaniSingh69/PharmaTrack/medicineparser"
	"github.com/NandaniSingh69/PharmaTrack/scheduler"
	"github.com/NandaniSingh69/PharmaTrack/validation"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "catalogctl",
		Usage:     "Manage the PharmaTrack SQLite catalog",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "import",
				Usage:  "Parse a catalog CSV and replace the SQLite catalog with it",
				Action: importCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "csv",
						Usage:    "Catalog CSV file path or http(s) URL",
						Required: true,
						EnvVars:  []string{"CATALOG_SOURCE"},
					},
					dbFlag(),
				},
			},
			{
				Name:   "alternatives",
				Usage:  "Print ranked alternatives for a medicine as JSON",
				Action: alternativesCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Target medicine id",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  "min-score",
						Usage: "Minimum similarity score in [0, 1]",
					},
					&cli.IntFlag{
						Name:  "max-results",
						Usage: "Maximum number of alternatives",
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Only consider candidates of this category",
					},
					&cli.Float64Flag{
						Name:  "max-price",
						Usage: "Only consider candidates priced at or below this",
					},
					&cli.BoolFlag{
						Name:  "include-same-name",
						Usage: "Keep candidates whose name equals the target's",
					},
				},
			},
		},
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to the SQLite catalog",
		Required: true,
		EnvVars:  []string{"SQLITE_PATH"},
	}
}

func setupLogger(c *cli.Context) error {
	return logging.InitLogger(logging.Options{Level: c.String("log-level"), Console: c.App.ErrWriter})
}

func importCommand(c *cli.Context) error {
	store, err := sqlitestore.Open(c.String("db"))
	if err != nil {
		return err
	}
	defer store.Close()

	validator := validation.NewDataValidator()
	parser := medicineparser.NewCSVParser(c.String("csv"), validator)

	if err := scheduler.NewScheduler(store, parser, validator, nil).Refresh(c.Context); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Imported %d medicines into %s\n", store.Count(), c.String("db"))
	return nil
}

func alternativesCommand(c *cli.Context) error {
	store, err := sqlitestore.Open(c.String("db"))
	if err != nil {
		return err
	}
	defer store.Close()

	engine, err := alternatives.NewEngine(store, alternatives.WithLogger(logging.Logger()))
	if err != nil {
		return err
	}
	defer engine.Close()

	req := alternatives.Request{
		TargetID: c.String("id"),
		Category: c.String("category"),
	}
	if c.IsSet("min-score") {
		v := c.Float64("min-score")
		req.MinScore = &v
	}
	if c.IsSet("max-results") {
		v := c.Int("max-results")
		req.MaxResults = &v
	}
	if c.IsSet("max-price") {
		v := c.Float64("max-price")
		req.MaxPrice = &v
	}
	if c.IsSet("include-same-name") {
		exclude := !c.Bool("include-same-name")
		req.ExcludeSameName = &exclude
	}

	resp, err := engine.Recommend(c.Context, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
