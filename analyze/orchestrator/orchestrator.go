/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/arnavk-polka/gavin-ai/agents/evals"
	"github.com/arnavk-polka/gavin-ai/analyze"
	"github.com/arnavk-polka/gavin-ai/analyze/judge"
	"github.com/arnavk-polka/gavin-ai/analyze/tester"
	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for an unknown session id.
	ErrNotFound = errors.New("session not found")
	// ErrUnknownKind is returned when asked to start an unsupported kind.
	ErrUnknownKind = errors.New("unknown session kind")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("orchestrator is closed")
	// ErrNoUserMessages is returned for a conversation without user turns.
	ErrNoUserMessages = errors.New("conversation has no user messages")
	// ErrCancelled is the failure cause of a session stopped with Cancel.
	ErrCancelled = errors.New("session cancelled")
)

// Extractor produces questions and fires them at the bot.
type Extractor interface {
	ParseTranscript(ctx context.Context, text string) ([]analyze.QAPair, error)
	ParseContentForAnalysis(ctx context.Context, text string) ([]analyze.QAPair, error)
	FireSequentiallyFunc(ctx context.Context, questions []string, cb tester.Callback, onResult func(analyze.TestResult)) []analyze.TestResult
}

// Evaluator scores bot responses.
type Evaluator interface {
	BatchEvaluateFunc(ctx context.Context, results []analyze.TestResult, pairs []analyze.QAPair, onEvaluated func(done int)) []analyze.EvaluatedResult
	EvaluateTurn(ctx context.Context, userMessage, botResponse string, history []analyze.Message) analyze.TurnEvaluation
}

// Bot is the agent under test.
type Bot interface {
	Send(ctx context.Context, message string, history []analyze.Message) (string, error)
}

// Sink receives the full snapshot of every session once it is terminal.
type Sink interface {
	Put(ctx context.Context, snap *analyze.Snapshot) error
}

// StartResult acknowledges a started session.
type StartResult struct {
	SessionID   string `json:"session_id"`
	SessionName string `json:"session_name"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}

// Orchestrator owns every session.
type Orchestrator struct {
	extractor Extractor
	evaluator Evaluator
	bot       Bot
	sink      Sink
	evict     bool
	observer  evals.Observer

	// startMu serializes Start calls so supersession is ordered.
	startMu sync.Mutex

	mu       sync.Mutex
	sessions map[string]*session
	latest   map[analyze.Kind]*session
	seq      int
	closed   bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSink hands terminal snapshots to sink.
func WithSink(sink Sink) Option {
	return func(o *Orchestrator) { o.sink = sink }
}

// WithEviction drops terminal sessions from memory once the sink has stored
// them. Lookups of an evicted id then miss and callers read the sink's copy.
// It has no effect without a sink.
func WithEviction() Option {
	return func(o *Orchestrator) { o.evict = true }
}

// WithObserver reports each finished session to obs, graded by its average
// overall score.
func WithObserver(obs evals.Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// New returns an Orchestrator.
func New(extractor Extractor, evaluator Evaluator, bot Bot, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		extractor: extractor,
		evaluator: evaluator,
		bot:       bot,
		sessions:  make(map[string]*session),
		latest:    make(map[analyze.Kind]*session),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func defaultName(kind analyze.Kind, n int, now time.Time) string {
	prefix := "Analysis"
	switch kind {
	case analyze.KindContentAnalysis:
		prefix = "Content_Analysis"
	case analyze.KindMultiTurn:
		prefix = "MultiTurn"
	}
	return fmt.Sprintf("%s_%d_%d", prefix, n, now.Unix())
}

// StartStressTest starts a transcript session.
func (o *Orchestrator) StartStressTest(ctx context.Context, transcript, name string) (StartResult, error) {
	return o.Start(ctx, analyze.KindStressTest, transcript, name)
}

// StartContentAnalysis starts a content analysis session.
func (o *Orchestrator) StartContentAnalysis(ctx context.Context, content, name string) (StartResult, error) {
	return o.Start(ctx, analyze.KindContentAnalysis, content, name)
}

// Start starts a stress test or content analysis session over text.
func (o *Orchestrator) Start(ctx context.Context, kind analyze.Kind, text, name string) (StartResult, error) {
	var parse func(context.Context, string) ([]analyze.QAPair, error)
	switch kind {
	case analyze.KindStressTest:
		parse = o.extractor.ParseTranscript
	case analyze.KindContentAnalysis:
		parse = o.extractor.ParseContentForAnalysis
	default:
		return StartResult{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return o.launch(ctx, kind, name, func(snap *analyze.Snapshot) {
		snap.InputText = text
	}, func(ctx context.Context, s *session) error {
		return o.runSingle(ctx, s, text, parse)
	})
}

// StartMultiTurn starts a session replaying messages: every user message is
// sent to the bot with the scripted conversation before it, and each reply
// is evaluated.
func (o *Orchestrator) StartMultiTurn(ctx context.Context, messages []analyze.Message, name string) (StartResult, error) {
	users := 0
	for _, m := range messages {
		if m.Role == "user" {
			users++
		}
	}
	if users == 0 {
		return StartResult{}, ErrNoUserMessages
	}
	msgs := append([]analyze.Message(nil), messages...)
	return o.launch(ctx, analyze.KindMultiTurn, name, func(snap *analyze.Snapshot) {
		snap.Messages = msgs
		snap.Progress.QuestionsTotal = users
	}, func(ctx context.Context, s *session) error {
		return o.runMultiTurn(ctx, s, msgs)
	})
}

func (o *Orchestrator) launch(ctx context.Context, kind analyze.Kind, name string, init func(*analyze.Snapshot), run func(context.Context, *session) error) (StartResult, error) {
	o.startMu.Lock()
	defer o.startMu.Unlock()

	id := uuid.NewString()
	log := clog.FromContext(ctx).With("session_id", id, "kind", kind)
	// The session outlives the request that started it.
	sctx, cancel := context.WithCancelCause(clog.WithLogger(context.WithoutCancel(ctx), log))

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		cancel(ErrClosed)
		return StartResult{}, ErrClosed
	}
	o.seq++
	now := time.Now().UTC()
	if strings.TrimSpace(name) == "" {
		name = defaultName(kind, o.seq, now)
	}
	s := &session{
		snap: analyze.Snapshot{
			ID:        id,
			Kind:      kind,
			Name:      name,
			Status:    analyze.StatusCreated,
			StartTime: now,
			Progress:  analyze.Progress{CurrentStep: analyze.StatusCreated},
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	init(&s.snap)
	prev := o.latest[kind]
	o.sessions[id] = s
	o.latest[kind] = s
	o.mu.Unlock()

	if prev != nil && !prev.terminal() {
		log.With("superseded", prev.id()).Info("Cancelling in-flight session")
		prev.stop(fmt.Errorf("superseded by %s", id))
	}
	go o.supervise(sctx, s, run)

	log.With("name", name).Info("Session started")
	return StartResult{
		SessionID:   id,
		SessionName: name,
		Status:      "started",
		Message:     "Session initiated. Poll the status endpoint for progress.",
	}, nil
}

// supervise runs a session to a terminal state and publishes the result.
func (o *Orchestrator) supervise(ctx context.Context, s *session, run func(context.Context, *session) error) {
	log := clog.FromContext(ctx)
	defer close(s.done)
	defer s.cancel(nil)

	func() {
		defer func() {
			if p := recover(); p != nil {
				log.With("panic", p).Error("Session panicked")
				s.finish(analyze.StatusFailed, fmt.Sprintf("panic: %v", p))
			}
		}()
		if err := run(ctx, s); err != nil {
			if cause := context.Cause(ctx); cause != nil && ctx.Err() != nil {
				err = cause
			}
			log.With("error", err).Warn("Session failed")
			s.finish(analyze.StatusFailed, err.Error())
			return
		}
		s.finish(analyze.StatusCompleted, "")
	}()

	snap := s.full()
	o.record(snap)
	if o.sink != nil {
		if err := o.sink.Put(context.WithoutCancel(ctx), snap); err != nil {
			log.With("error", err).Error("Failed to persist session snapshot")
		} else if o.evict {
			o.mu.Lock()
			delete(o.sessions, snap.ID)
			o.mu.Unlock()
			log.Debug("Evicted archived session")
		}
	}
	log.With("status", snap.Status, "duration", snap.DurationSeconds).Info("Session finished")
}

func (o *Orchestrator) record(snap *analyze.Snapshot) {
	var score float64
	switch {
	case snap.Metrics != nil:
		score = snap.Metrics.AvgOverallScore
	case snap.MultiTurnMetrics != nil:
		score = snap.MultiTurnMetrics.AvgOverallScore
	}
	failure := ""
	if snap.Status == analyze.StatusFailed {
		failure = snap.Error
	}
	evals.Record(o.observer, score, snap.Name, failure)
}

func (o *Orchestrator) runSingle(ctx context.Context, s *session, text string, parse func(context.Context, string) ([]analyze.QAPair, error)) error {
	log := clog.FromContext(ctx)

	s.setStatus(analyze.StatusParsing)
	pairs, err := parse(ctx, text)
	s.update(func(snap *analyze.Snapshot) { snap.QAPairs = pairs })
	if err != nil {
		return err
	}
	questions := tester.ExtractQuestions(pairs)
	if len(questions) == 0 {
		return tester.ErrNoQuestions
	}
	s.update(func(snap *analyze.Snapshot) {
		snap.Questions = questions
		snap.Progress.QuestionsTotal = len(questions)
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	s.setStatus(analyze.StatusTestingResponses)
	ask := func(ctx context.Context, q string) (string, error) {
		return o.bot.Send(ctx, q, nil)
	}
	results := o.extractor.FireSequentiallyFunc(ctx, questions, ask, func(r analyze.TestResult) {
		s.update(func(snap *analyze.Snapshot) {
			snap.TestResults = append(snap.TestResults, r)
			snap.Progress.QuestionsCompleted = r.QuestionIndex + 1
		})
	})
	s.update(func(snap *analyze.Snapshot) { snap.TestResults = results })
	if err := ctx.Err(); err != nil {
		return err
	}

	s.setStatus(analyze.StatusEvaluatingResponses)
	rows := o.evaluator.BatchEvaluateFunc(ctx, results, pairs, func(done int) {
		s.update(func(snap *analyze.Snapshot) { snap.Progress.EvaluationsCompleted = done })
	})
	s.update(func(snap *analyze.Snapshot) {
		snap.EvaluatedResults = rows
		snap.Progress.EvaluationsCompleted = len(rows)
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	s.setStatus(analyze.StatusCalculatingMetrics)
	m := judge.CalculateAggregateMetrics(rows)
	s.update(func(snap *analyze.Snapshot) { snap.Metrics = &m })
	log.With("avg_overall_score", m.AvgOverallScore, "pass_rate", m.PassRate).Info("Session metrics calculated")
	return nil
}

func (o *Orchestrator) runMultiTurn(ctx context.Context, s *session, messages []analyze.Message) error {
	log := clog.FromContext(ctx)
	s.setStatus(analyze.StatusProcessing)

	for i, msg := range messages {
		if msg.Role != "user" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		history := messages[:i:i]
		turn := analyze.TurnResult{
			MessageIndex: i,
			UserMessage:  msg.Content,
			Timestamp:    time.Now().UTC(),
		}
		resp, err := o.bot.Send(ctx, msg.Content, history)
		if err != nil {
			log.With("message_index", i, "error", err).Warn("Bot call failed")
			turn.Status = analyze.ResultError
			turn.Error = err.Error()
			turn.Evaluation = judge.DefaultTurnEvaluation(err)
		} else {
			turn.Status = analyze.ResultSuccess
			turn.BotResponse = &resp
			turn.Evaluation = o.evaluator.EvaluateTurn(ctx, msg.Content, resp, history)
		}
		s.update(func(snap *analyze.Snapshot) {
			snap.Turns = append(snap.Turns, turn)
			snap.Progress.QuestionsCompleted++
			snap.Progress.EvaluationsCompleted++
		})
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	turns := append([]analyze.TurnResult(nil), s.snap.Turns...)
	s.mu.Unlock()
	m := judge.CalculateMultiTurnMetrics(turns)
	s.update(func(snap *analyze.Snapshot) { snap.MultiTurnMetrics = &m })
	return nil
}

func (o *Orchestrator) get(id string) (*session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[id]
	return s, ok
}

// Status returns the session header, progress and metrics.
func (o *Orchestrator) Status(id string) (*analyze.Snapshot, bool) {
	s, ok := o.get(id)
	if !ok {
		return nil, false
	}
	return s.coarse(), true
}

// Results returns the full session once it is completed or failed.
func (o *Orchestrator) Results(id string) (*analyze.Snapshot, bool) {
	s, ok := o.get(id)
	if !ok || !s.terminal() {
		return nil, false
	}
	return s.full(), true
}

// MultiTurnStatus is Status restricted to multi-turn sessions.
func (o *Orchestrator) MultiTurnStatus(id string) (*analyze.Snapshot, bool) {
	if s, ok := o.get(id); !ok || s.kind() != analyze.KindMultiTurn {
		return nil, false
	}
	return o.Status(id)
}

// MultiTurnResults is Results restricted to multi-turn sessions.
func (o *Orchestrator) MultiTurnResults(id string) (*analyze.Snapshot, bool) {
	if s, ok := o.get(id); !ok || s.kind() != analyze.KindMultiTurn {
		return nil, false
	}
	return o.Results(id)
}

// Wait blocks until the session is terminal and returns its full snapshot.
func (o *Orchestrator) Wait(ctx context.Context, id string) (*analyze.Snapshot, error) {
	s, ok := o.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	select {
	case <-s.done:
		return s.full(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Latest returns the id of the most recently started session of kind.
func (o *Orchestrator) Latest(kind analyze.Kind) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.latest[kind]
	if !ok {
		return "", false
	}
	return s.id(), true
}

// Cancel stops a running session and waits for it to finish. Cancelling a
// finished session is a no-op.
func (o *Orchestrator) Cancel(id string) error {
	s, ok := o.get(id)
	if !ok {
		return ErrNotFound
	}
	s.stop(ErrCancelled)
	return nil
}

// Close stops every running session and waits for them. Start fails
// afterwards.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	o.closed = true
	running := make([]*session, 0, len(o.sessions))
	for _, s := range o.sessions {
		running = append(running, s)
	}
	o.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range running {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.stop(ErrClosed)
		}()
	}
	wg.Wait()
	return nil
}
