package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/decision"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/identity"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/pipeline"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var name, creator, metricsFile string
	var showTrail bool

	cmd := &cobra.Command{
		Use:   "resolve <url>",
		Short: "Decide whether a mod page is already in the catalog",
		Long: `Resolve a mod page URL against the reference catalog.

The result is FOUND (with the catalog entry), AMBIGUOUS (several entries are
equally likely, often catalog duplicates), NOTFOUND, or REJECTED (unusable or
dead URL). Without --name the mod name is derived from the URL.

Examples:
  modanalyzer resolve https://www.patreon.com/posts/cool-pack-12345
  modanalyzer resolve --name "Cool Pack" --creator Ann https://example.com/p/9
  modanalyzer --json resolve https://modthesims.info/d/123456`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawURL := args[0]
			return ctx.withRuntime(cmd.Context(), producerFor(name, creator), func(rt *pipeline.Runtime) error {
				outcome, err := rt.Resolver.Resolve(cmd.Context(), rawURL)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", rawURL, err)
				}
				if err := writeMetrics(rt, metricsFile); err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, outcome)
				}
				out := cmd.OutOrStdout()
				printOutcome(out, rawURL, outcome, showTrail, shouldColorize(out))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Mod name to match instead of the one derived from the URL")
	cmd.Flags().StringVar(&creator, "creator", "", "Mod creator (used with --name)")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after resolving")
	cmd.Flags().BoolVar(&showTrail, "trail", false, "Print the decision trail")
	return cmd
}

type batchResult struct {
	URL     string           `json:"url"`
	Outcome decision.Outcome `json:"outcome"`
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var metricsFile string

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Resolve every URL listed in a file (one per line, - for stdin)",
		Long: `Resolve URLs one after another. Blank lines and lines starting with #
are skipped. Repeated URLs are answered from the decision cache.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			urls, err := readURLList(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return ctx.withRuntime(cmd.Context(), nil, func(rt *pipeline.Runtime) error {
				results := make([]batchResult, 0, len(urls))
				for _, rawURL := range urls {
					outcome, err := rt.Resolver.Resolve(cmd.Context(), rawURL)
					if err != nil {
						return fmt.Errorf("resolve %s: %w", rawURL, err)
					}
					results = append(results, batchResult{URL: rawURL, Outcome: outcome})
				}
				if err := writeMetrics(rt, metricsFile); err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, results)
				}
				printBatch(cmd.OutOrStdout(), results)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the batch")
	return cmd
}

func producerFor(name, creator string) identity.Producer {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	return identity.Static{Name: name, Creator: creator}
}

func writeMetrics(rt *pipeline.Runtime, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := rt.Metrics.WriteTextfile(path); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func readURLList(stdin io.Reader, path string) ([]string, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open url list: %w", err)
		}
		defer f.Close()
		r = f
	}

	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return urls, nil
}

func printBatch(out io.Writer, results []batchResult) {
	if len(results) == 0 {
		fmt.Fprintln(out, "No URLs to resolve")
		return
	}
	colorize := shouldColorize(out)
	counts := make(map[decision.Status]int)
	rows := make([][]string, 0, len(results))
	for i, r := range results {
		o := r.Outcome
		counts[o.Status]++
		target := o.ChosenID
		if target == "" && len(o.CandidateIDs) > 0 {
			target = strings.Join(o.CandidateIDs, ", ")
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			r.URL,
			renderStatus(o.Status, colorize),
			string(o.Stage),
			target,
			o.CacheSource,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "URL", "Result", "Stage", "Entry", "Cache"},
		rows,
		[]columnAlignment{alignRight},
	))
	fmt.Fprintf(out, "%d resolved: %d found, %d ambiguous, %d not found, %d rejected\n",
		len(results),
		counts[decision.StatusFound],
		counts[decision.StatusAmbiguous],
		counts[decision.StatusNotFound],
		counts[decision.StatusRejected])
}
