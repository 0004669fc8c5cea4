package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/arvindpandey4/loan-insight-assistant/internal/pipeline"
	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question about historical loan decisions",
	Long: `Ask resolves one question. It is answered verbatim from the curated
catalog when a catalog question is close enough; otherwise the most similar
historical cases are retrieved and summarized into an explanation with
evidence points and risk notes.

Use --history to pass earlier turns as a YAML list of {role, text} entries,
or --interactive to hold a conversation on stdin. Only the five most recent
turns are used.`,
	RunE: runAsk,
}

type askOptions struct {
	json    bool
	trace   bool
	metrics bool
}

func runAsk(cmd *cobra.Command, args []string) error {
	historyPath, _ := cmd.Flags().GetString("history")
	interactive, _ := cmd.Flags().GetBool("interactive")
	var opts askOptions
	opts.json, _ = cmd.Flags().GetBool("json")
	opts.trace, _ = cmd.Flags().GetBool("trace")
	opts.metrics, _ = cmd.Flags().GetBool("metrics")

	conv, err := readHistory(historyPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	reg := prometheus.NewRegistry()
	p, err := buildPipeline(ctx, cfg, reg, logger)
	if err != nil {
		return err
	}

	if interactive {
		err = converse(ctx, p, conv, os.Stdin, os.Stdout, opts)
	} else {
		query := strings.Join(args, " ")
		_, err = askOnce(ctx, p, query, conv, os.Stdout, opts)
	}
	if opts.metrics {
		if merr := writeMetrics(os.Stderr, reg); merr != nil && err == nil {
			err = merr
		}
	}
	return err
}

// askOnce resolves query and writes the response to w.
func askOnce(ctx context.Context, p *pipeline.Pipeline, query string, conv types.Conversation, w io.Writer, opts askOptions) (types.InsightResponse, error) {
	resp, trace, err := p.ResolveTrace(ctx, query, conv)
	if err != nil {
		return resp, err
	}
	if opts.trace {
		writeTrace(os.Stderr, trace)
	}
	if opts.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return resp, enc.Encode(resp)
	}
	writeResponse(w, resp)
	return resp, nil
}

// converse reads one question per line from r until EOF or "exit",
// carrying the last turns between questions.
func converse(ctx context.Context, p *pipeline.Pipeline, conv types.Conversation, r io.Reader, w io.Writer, opts askOptions) error {
	scanner := bufio.NewScanner(r)
	for {
		fmt.Fprint(w, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return scanner.Err()
		}
		query := strings.TrimSpace(scanner.Text())
		switch query {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		resp, err := askOnce(ctx, p, query, conv, w, opts)
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			continue
		}
		conv = append(conv,
			types.Turn{Role: types.RoleUser, Text: query},
			types.Turn{Role: types.RoleAssistant, Text: resp.Answer},
		).Recent()
	}
}

// readHistory loads a YAML list of turns. An empty path means no history.
func readHistory(path string) (types.Conversation, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	var conv types.Conversation
	if err := yaml.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("parsing history %s: %w", path, err)
	}
	return conv, nil
}

func writeResponse(w io.Writer, resp types.InsightResponse) {
	fmt.Fprintln(w, resp.Answer)
	if len(resp.EvidencePoints) > 0 {
		fmt.Fprintln(w, "\nEvidence:")
		for _, e := range resp.EvidencePoints {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}
	if len(resp.RiskNotes) > 0 {
		fmt.Fprintln(w, "\nRisk notes:")
		for _, n := range resp.RiskNotes {
			fmt.Fprintf(w, "  - %s\n", n)
		}
	}
	fmt.Fprintf(w, "\n%s\n", resp.ComplianceDisclaimer)
	fmt.Fprintf(w, "\nSource: %s", resp.Source)
	if len(resp.RetrievedCases) > 0 {
		cases := make([]string, len(resp.RetrievedCases))
		for i, c := range resp.RetrievedCases {
			cases[i] = fmt.Sprintf("%s %.3f", c.CaseID, c.Score)
		}
		fmt.Fprintf(w, " (cases %s)", strings.Join(cases, ", "))
	}
	fmt.Fprintln(w)
}

func writeTrace(w io.Writer, t pipeline.Trace) {
	states := make([]string, len(t.States))
	for i, s := range t.States {
		states[i] = string(s)
	}
	fmt.Fprintf(w, "request %s: %s\n", t.RequestID, strings.Join(states, " -> "))
	if t.CuratedID != "" {
		fmt.Fprintf(w, "  curated: %s (%.3f)\n", t.CuratedID, t.CuratedScore)
		return
	}
	fmt.Fprintf(w, "  curated: no match (%s, best %.3f)\n", t.NoMatchReason, t.CuratedScore)
	fmt.Fprintf(w, "  intent: %s via %s, tone %s, confidence %.2f", t.Intent.Category, t.Intent.Method, t.Intent.Tone, t.Intent.Confidence)
	if f := t.Intent.Filters.String(); f != "" {
		fmt.Fprintf(w, ", filters %s", f)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  retrieval: lexical=%t filter_retry=%t\n", t.Lexical, t.FilterRetry)
	if t.Synthesis != "" {
		fmt.Fprintf(w, "  synthesis: %s\n", t.Synthesis)
	}
}

// writeMetrics prints counter values as "name{labels} value" lines.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			var labels []string
			for _, l := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			sort.Strings(labels)
			fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
		}
	}
	return nil
}

func init() {
	askCmd.Flags().String("history", "", "YAML file of earlier conversation turns")
	askCmd.Flags().Bool("interactive", false, "read questions from stdin, one per line")
	askCmd.Flags().Bool("json", false, "output the response as JSON")
	askCmd.Flags().Bool("trace", false, "print the resolution path to stderr")
	askCmd.Flags().Bool("metrics", false, "print pipeline counters to stderr on exit")

	rootCmd.AddCommand(askCmd)
}
