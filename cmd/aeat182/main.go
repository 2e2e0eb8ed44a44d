package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/csg33k/aeat182-generator/internal/adapters/aeat182"
	sqliteadapter "github.com/csg33k/aeat182-generator/internal/adapters/sqlite"
	"github.com/csg33k/aeat182-generator/internal/config"
	"github.com/csg33k/aeat182-generator/internal/logger"
	"github.com/csg33k/aeat182-generator/internal/report"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := Execute(cfg); err != nil {
		os.Exit(1)
	}
}

// newService wires the sqlite adapter into every port the workflow needs.
func newService(cfg *config.Config) (*report.Service, error) {
	repo, err := sqliteadapter.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DBPath, err)
	}
	gen := aeat182.New()
	return report.New(repo, repo, repo, repo, repo, gen, logger.WithComponent("report")), nil
}
