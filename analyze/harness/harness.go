/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package harness assembles the evaluation pipeline from configuration.
package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arnavk-polka/gavin-ai/agents/evals"
	"github.com/arnavk-polka/gavin-ai/agents/executor/provider"
	"github.com/arnavk-polka/gavin-ai/analyze/bot"
	"github.com/arnavk-polka/gavin-ai/analyze/judge"
	"github.com/arnavk-polka/gavin-ai/analyze/orchestrator"
	"github.com/arnavk-polka/gavin-ai/analyze/rubric"
	"github.com/arnavk-polka/gavin-ai/analyze/semantic"
	"github.com/arnavk-polka/gavin-ai/analyze/store"
	"github.com/arnavk-polka/gavin-ai/analyze/tester"
	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
)

// Semantic backends.
const (
	BackendOpenAI  = "openai"
	BackendLexical = "lexical"
)

// Config is everything needed to run sessions.
type Config struct {
	Provider provider.Config

	BotURL    string `env:"BOT_URL"`
	BotHandle string `env:"BOT_HANDLE,default=gavinwood"`

	UseRubric       bool   `env:"USE_RUBRIC,default=true"`
	UseSemantic     bool   `env:"USE_SEMANTIC,default=true"`
	SemanticBackend string `env:"SEMANTIC_BACKEND,default=openai"`
	PersonaContext  string `env:"PERSONA_CONTEXT"`

	// Negative delays disable the pause.
	QuestionDelay   time.Duration `env:"QUESTION_DELAY,default=500ms"`
	EvaluationDelay time.Duration `env:"EVALUATION_DELAY,default=300ms"`

	SnapshotBucket string `env:"SNAPSHOT_BUCKET"`
	SnapshotPrefix string `env:"SNAPSHOT_PREFIX,default=sessions"`
}

// ConfigFromEnv processes Config from the environment.
func ConfigFromEnv(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, fmt.Errorf("processing config: %w", err)
	}
	return cfg, nil
}

// Observers receive evaluation results. Nil fields are ignored.
type Observers struct {
	Evaluations evals.Observer
	Sessions    evals.Observer
}

// Harness is an assembled pipeline.
type Harness struct {
	Orchestrator *orchestrator.Orchestrator
	// Archive is set when snapshots are persisted to Cloud Storage.
	Archive *store.GCS
}

// New builds the pipeline for cfg.
func New(ctx context.Context, cfg Config, obs Observers) (*Harness, error) {
	if cfg.BotURL == "" {
		return nil, errors.New("BOT_URL is required")
	}
	clients := provider.NewClients(cfg.Provider)

	log := clog.FromContext(ctx)
	var scorer judge.Scorer
	if cfg.UseSemantic {
		backend, err := semanticBackend(clients, cfg)
		if err != nil {
			return nil, err
		}
		sc := semantic.New(backend)
		r := sc.Range()
		log.With("backend", sc.Backend(), "range_min", r.Min, "range_max", r.Max).Info("Semantic scoring enabled")
		scorer = sc
	}

	questionDelay := max(cfg.QuestionDelay, 0)
	t, err := tester.NewFromProvider(ctx, clients, cfg.Provider.ExtractionModel, tester.WithDelay(questionDelay))
	if err != nil {
		return nil, fmt.Errorf("creating tester: %w", err)
	}

	var jopts []judge.Option
	if obs.Evaluations != nil {
		jopts = append(jopts, judge.WithObserver(obs.Evaluations))
	}
	j, err := judge.NewFromProvider(ctx, clients, cfg.Provider.JudgeModel, judge.Config{
		UseRubric:      cfg.UseRubric,
		UseSemantic:    cfg.UseSemantic,
		Delay:          cfg.EvaluationDelay,
		PersonaContext: cfg.PersonaContext,
	}, scorer, jopts...)
	if err != nil {
		return nil, fmt.Errorf("creating judge: %w", err)
	}

	b, err := bot.New(cfg.BotURL, bot.WithHandle(cfg.BotHandle))
	if err != nil {
		return nil, fmt.Errorf("creating bot client: %w", err)
	}

	h := &Harness{}
	var oopts []orchestrator.Option
	if obs.Sessions != nil {
		oopts = append(oopts, orchestrator.WithObserver(obs.Sessions))
	}
	if cfg.SnapshotBucket != "" {
		archive, err := store.NewGCS(ctx, cfg.SnapshotBucket, cfg.SnapshotPrefix)
		if err != nil {
			return nil, err
		}
		h.Archive = archive
		oopts = append(oopts, orchestrator.WithSink(archive), orchestrator.WithEviction())
	}
	h.Orchestrator = orchestrator.New(t, j, b, oopts...)

	log.With(
		"extraction_model", cfg.Provider.ExtractionModel,
		"judge_model", cfg.Provider.JudgeModel,
		"rubric", cfg.UseRubric,
		"semantic", cfg.UseSemantic,
		"semantic_backend", cfg.SemanticBackend,
		"bot_url", cfg.BotURL,
	).Info("Evaluation harness ready")
	return h, nil
}

// NewConversationJudge builds the rubric judge used to grade recorded
// conversations. It needs provider settings only.
func NewConversationJudge(ctx context.Context, cfg Config) (*rubric.Judge, error) {
	j, err := rubric.NewFromProvider(ctx, provider.NewClients(cfg.Provider), cfg.Provider.JudgeModel,
		rubric.WithDelay(rubric.ConversationDelay))
	if err != nil {
		return nil, fmt.Errorf("creating conversation judge: %w", err)
	}
	return j, nil
}

func semanticBackend(clients *provider.Clients, cfg Config) (semantic.Backend, error) {
	switch cfg.SemanticBackend {
	case BackendOpenAI:
		client, err := clients.OpenAI()
		if err != nil {
			return nil, fmt.Errorf("semantic backend: %w", err)
		}
		return semantic.NewOpenAI(client, cfg.Provider.EmbeddingModel), nil
	case BackendLexical:
		return semantic.Lexical{}, nil
	default:
		return nil, fmt.Errorf("unknown semantic backend %q (want %s or %s)", cfg.SemanticBackend, BackendOpenAI, BackendLexical)
	}
}

// Close stops every session and releases the archive.
func (h *Harness) Close() error {
	err := h.Orchestrator.Close()
	if h.Archive != nil {
		err = errors.Join(err, h.Archive.Close())
	}
	return err
}
