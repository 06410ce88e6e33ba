package cmd

import (
	"fmt"
	"os"

	"github.com/planwave/planwave/internal/checkpoint"
	"github.com/planwave/planwave/internal/config"
	"github.com/planwave/planwave/internal/deviation"
	"github.com/planwave/planwave/internal/executor"
	"github.com/planwave/planwave/internal/knowledge"
	"github.com/planwave/planwave/internal/logging"
	"github.com/planwave/planwave/internal/runstore"
	"github.com/planwave/planwave/internal/verify"
)

// engine bundles everything a command needs, built from the config file.
type engine struct {
	cfg   *config.Config
	store *runstore.Store
	log   *logging.Logger
	exec  *executor.Executor
}

func openEngine() (*engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	store, err := runstore.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.DataDir)
	if err != nil {
		store.Close()
		return nil, err
	}
	if jsonOutput {
		log.Quiet = true
	}

	var ks knowledge.Store = knowledge.Empty{}
	if cfg.KnowledgeDir != "" {
		ks = knowledge.NewDirStore(cfg.KnowledgeDir)
	}
	wd, _ := os.Getwd()

	classifier := deviation.New(cfg.Rules())
	classifier.StrictDefault = cfg.StrictDeviations

	e := &executor.Executor{
		Store:       store,
		Worker:      &executor.CommandWorker{Timeout: cfg.StepTimeout},
		Gate:        verify.New(cfg.Verification.Commands, wd, cfg.Verification.StopOnFailure),
		Classifier:  classifier,
		Checkpoints: checkpoint.NewManager(store),
		Knowledge:   ks,
		Log:         log,
		DataDir:     cfg.DataDir,
		WorkDir:     wd,
		Project:     cfg.Project,
		MaxParallel: cfg.MaxParallel,
		StepTimeout: cfg.StepTimeout,
	}
	return &engine{cfg: cfg, store: store, log: log, exec: e}, nil
}

func (e *engine) close() {
	e.log.Close()
	e.store.Close()
}
