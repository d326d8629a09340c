package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"TaskIntake/internal/app"
	"TaskIntake/internal/config"
	"TaskIntake/internal/domain"
	"TaskIntake/internal/infrastructure/storage"
	"TaskIntake/internal/logging"
)

func main() {
	if err := newCLI(os.Stdout).Run(os.Args); err != nil {
		slog.Error("taskintake stopped", "error", err)
		os.Exit(1)
	}
}

func newCLI(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "taskintake",
		Usage:  "Enrich incoming tasks with the relevant SOP and keep an audit trail",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration",
				EnvVars: []string{"TASK_INTAKE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Override logging format (text, json)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the intake HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (defaults to http.addr from config)",
					},
				},
			},
			{
				Name:   "process",
				Usage:  "Process a single task and print the enriched result as JSON",
				Action: processCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "message",
						Aliases:  []string{"m"},
						Usage:    "Task description",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "source",
						Aliases: []string{"s"},
						Usage:   "Caller identifier",
						Value:   "cli",
					},
				},
			},
			{
				Name:   "schema",
				Usage:  "Create the audit table if it does not exist",
				Action: schemaCommand,
			},
			{
				Name:   "audit",
				Usage:  "Print the most recent audit records",
				Action: auditCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of records to show",
						Value: 20,
					},
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, nil, err
	}
	if v := c.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := c.String("log-format"); v != "" {
		cfg.Logging.Format = v
	}

	// logs go to stderr so command output stays machine-readable
	logger := logging.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func serveCommand(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.HTTP.Addr = addr
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Run(ctx)
}

type taskOutput struct {
	TaskContent string `json:"task_content"`
	Category    string `json:"category"`
	Priority    int    `json:"priority"`
}

func processCommand(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}

	application, err := app.New(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	task, err := application.Pipeline().Process(c.Context, domain.IntakeRequest{
		Message: c.String("message"),
		Source:  c.String("source"),
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(taskOutput{
		TaskContent: task.TaskContent,
		Category:    string(task.Category),
		Priority:    task.Priority,
	})
}

func schemaCommand(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}

	repo, closeDB, err := openAudit(c.Context, cfg.Database)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := repo.EnsureSchema(c.Context); err != nil {
		return err
	}
	logger.Info("audit schema ready", "driver", cfg.Database.Driver)
	return nil
}

func auditCommand(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}

	repo, closeDB, err := openAudit(c.Context, cfg.Database)
	if err != nil {
		return err
	}
	defer closeDB()

	records, err := repo.Recent(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Fprintf(c.App.Writer, "%d\t%s\t%s\t%s\n", rec.ID, rec.Source, rec.Action, rec.Input)
	}
	return nil
}

func openAudit(ctx context.Context, cfg config.DatabaseConfig) (*storage.AuditRepository, func(), error) {
	db, dialect, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewAuditRepository(db, dialect), func() { _ = db.Close() }, nil
}
