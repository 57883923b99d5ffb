/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arnavk-polka/gavin-ai/agents/evals"
	evalreport "github.com/arnavk-polka/gavin-ai/agents/evals/report"
	"github.com/arnavk-polka/gavin-ai/analyze"
	"github.com/arnavk-polka/gavin-ai/analyze/harness"
	"github.com/arnavk-polka/gavin-ai/analyze/orchestrator"
	"github.com/arnavk-polka/gavin-ai/analyze/report"
	"github.com/arnavk-polka/gavin-ai/analyze/rubric"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// errBelowThreshold is returned when --fail-below is set and the session
// scored under the threshold.
var errBelowThreshold = errors.New("evaluation below threshold")

type options struct {
	botURL          string
	botHandle       string
	extractionModel string
	judgeModel      string
	semanticBackend string
	noRubric        bool
	noSemantic      bool
	sessionName     string
	persona         string
	output          string
	threshold       float64
	failBelow       bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "gavin-eval",
		Short: "Evaluate a persona bot offline",
		Long: `gavin-eval extracts questions from a transcript or content, fires them at
the bot under test, scores every reply and prints a report.

Provider credentials and defaults are read from the environment
(OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY, GOOGLE_CLOUD_PROJECT, ...);
flags override them.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.botURL, "bot-url", "", "chat endpoint of the bot under test (default $BOT_URL)")
	pf.StringVar(&opts.botHandle, "bot-handle", "", "persona handle sent to the bot (default $BOT_HANDLE)")
	pf.StringVar(&opts.extractionModel, "extraction-model", "", "model used to extract questions")
	pf.StringVar(&opts.judgeModel, "judge-model", "", "model used to judge replies")
	pf.StringVar(&opts.semanticBackend, "semantic-backend", "", "semantic similarity backend: openai or lexical")
	pf.BoolVar(&opts.noRubric, "no-rubric", false, "use the legacy judge instead of the rubric")
	pf.BoolVar(&opts.noSemantic, "no-semantic", false, "disable semantic similarity scoring")
	pf.StringVar(&opts.sessionName, "name", "", "session name")
	pf.StringVar(&opts.persona, "persona", "", "persona description given to judges (default $PERSONA_CONTEXT)")
	pf.StringVarP(&opts.output, "output", "o", "text", "output format: text, json or yaml")
	pf.Float64Var(&opts.threshold, "threshold", analyze.PassThreshold, "grade threshold for the evaluation summary")
	pf.BoolVar(&opts.failBelow, "fail-below", false, "exit non-zero when the evaluation summary is below --threshold")

	root.AddCommand(
		newStressTestCmd(opts),
		newContentCmd(opts),
		newMultiTurnCmd(opts),
		newConversationCmd(opts),
	)
	return root
}

func newStressTestCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stress-test FILE",
		Short: "Extract Q&A pairs from a transcript and test the bot with them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			return run(cmd, opts, func(o *orchestrator.Orchestrator) (orchestrator.StartResult, error) {
				return o.StartStressTest(cmd.Context(), text, opts.sessionName)
			})
		},
	}
}

func newContentCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "content FILE",
		Short: "Generate technical questions from content and test the bot with them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			return run(cmd, opts, func(o *orchestrator.Orchestrator) (orchestrator.StartResult, error) {
				return o.StartContentAnalysis(cmd.Context(), text, opts.sessionName)
			})
		},
	}
}

func newMultiTurnCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "multi-turn FILE",
		Short: "Replay a scripted conversation (YAML or JSON list of role/content messages)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			messages, err := parseMessages([]byte(text))
			if err != nil {
				return err
			}
			return run(cmd, opts, func(o *orchestrator.Orchestrator) (orchestrator.StartResult, error) {
				return o.StartMultiTurn(cmd.Context(), messages, opts.sessionName)
			})
		},
	}
}

func newConversationCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "conversation FILE",
		Short: "Grade the assistant replies of a recorded conversation with the rubric judge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			messages, err := parseMessages([]byte(text))
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			cfg, err := harness.ConfigFromEnv(ctx)
			if err != nil {
				return err
			}
			opts.apply(&cfg)
			j, err := harness.NewConversationJudge(ctx, cfg)
			if err != nil {
				return err
			}
			verdicts := j.EvaluateConversation(ctx, messages, cfg.PersonaContext)
			if len(verdicts) == 0 {
				return errors.New("conversation has no assistant replies")
			}
			return write(cmd.OutOrStdout(), opts.output, report.Conversation{
				Evaluations: verdicts,
				Metrics:     rubric.Aggregate(verdicts),
			})
		},
	}
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	var b []byte
	var err error
	if path == "-" {
		b, err = io.ReadAll(cmd.InOrStdin())
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(b), nil
}

// parseMessages accepts a YAML (or JSON) list of messages.
func parseMessages(b []byte) ([]analyze.Message, error) {
	var raw []struct {
		Role    string `yaml:"role"`
		Content string `yaml:"content"`
	}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parsing messages: %w", err)
	}
	out := make([]analyze.Message, 0, len(raw))
	for _, m := range raw {
		out = append(out, analyze.Message{Role: strings.ToLower(strings.TrimSpace(m.Role)), Content: m.Content})
	}
	return out, nil
}

func (opts *options) apply(cfg *harness.Config) {
	if opts.botURL != "" {
		cfg.BotURL = opts.botURL
	}
	if opts.botHandle != "" {
		cfg.BotHandle = opts.botHandle
	}
	if opts.extractionModel != "" {
		cfg.Provider.ExtractionModel = opts.extractionModel
	}
	if opts.judgeModel != "" {
		cfg.Provider.JudgeModel = opts.judgeModel
	}
	if opts.semanticBackend != "" {
		cfg.SemanticBackend = opts.semanticBackend
	}
	if opts.noRubric {
		cfg.UseRubric = false
	}
	if opts.noSemantic {
		cfg.UseSemantic = false
	}
	if opts.persona != "" {
		cfg.PersonaContext = opts.persona
	}
	// Offline runs never write to the dashboard bucket.
	cfg.SnapshotBucket = ""
}

func run(cmd *cobra.Command, opts *options, start func(*orchestrator.Orchestrator) (orchestrator.StartResult, error)) error {
	ctx := cmd.Context()
	cfg, err := harness.ConfigFromEnv(ctx)
	if err != nil {
		return err
	}
	opts.apply(&cfg)

	obs := evals.NewNamespacedObserver(func(string) *evals.ResultCollector {
		return evals.NewResultCollector(&evals.Counter{})
	})
	h, err := harness.New(ctx, cfg, harness.Observers{
		Evaluations: obs.Child("evaluations"),
		Sessions:    obs.Child("sessions"),
	})
	if err != nil {
		return err
	}
	defer h.Close()

	started, err := start(h.Orchestrator)
	if err != nil {
		return err
	}
	clog.FromContext(ctx).With("session_id", started.SessionID).Info("Waiting for session")
	snap, err := h.Orchestrator.Wait(ctx, started.SessionID)
	if err != nil {
		return err
	}

	if err := write(cmd.OutOrStdout(), opts.output, snap); err != nil {
		return err
	}
	summary, below := evalreport.ByNamespace(obs, opts.threshold)
	fmt.Fprintf(cmd.ErrOrStderr(), "\n%s", summary)

	switch {
	case snap.Status == analyze.StatusFailed:
		return fmt.Errorf("session %s failed: %s", snap.ID, snap.Error)
	case below && opts.failBelow:
		return errBelowThreshold
	}
	return nil
}

// write renders a *analyze.Snapshot or a report.Conversation.
func write(w io.Writer, format string, v any) error {
	switch format {
	case "text":
		switch v := v.(type) {
		case *analyze.Snapshot:
			return report.Write(w, v)
		case report.Conversation:
			return report.WriteConversation(w, v)
		default:
			return fmt.Errorf("no text report for %T", v)
		}
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		// Round trip through JSON so YAML keys follow the JSON field names.
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var doc any
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return err
		}
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		_, err = w.Write(buf.Bytes())
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
