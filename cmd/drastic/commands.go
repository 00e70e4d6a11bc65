package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain/batch"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain/crawl"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/graph"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/logger"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/pipeline"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/version"
)

var (
	crawlDepth int
	crawlTopic string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <startUri>",
	Short: "Publish a crawl request for a resource and its descendants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := pipeline.ValidateIRI(args[0]); err != nil {
			return err
		}
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		bus, err := a.connectBus(ctx)
		if err != nil {
			return err
		}
		defer bus.Close()

		subjects := bus.Subjects()
		if _, err := subjects.Topic(crawlTopic); err != nil {
			return err
		}
		req := crawl.Request{
			StartURI: args[0],
			Depth:    crawlDepth,
			Topic:    crawlTopic,
			CrawlID:  uuid.NewString(),
		}
		if err := req.Validate(); err != nil {
			return err
		}
		payload, err := json.Marshal(req)
		if err != nil {
			return err
		}
		if err := bus.Publish(ctx, subjects.Crawl(), payload); err != nil {
			return fmt.Errorf("publish crawl request: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "crawl %s queued (depth %d, topic %s)\n", req.CrawlID, req.Depth, req.Topic)
		return nil
	},
}

var assembleCmd = &cobra.Command{
	Use:   "assemble <submissionUri>",
	Short: "Build the paged documents of one submission now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := logger.ContextWithLogger(cmd.Context(), a.logger)
		report, err := a.assembler().Assemble(ctx, args[0])
		printReport(cmd.OutOrStdout(), report)
		return err
	},
}

var indexCmd = &cobra.Command{
	Use:   "index <graphUri>",
	Short: "Index the subjects of one graph now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := logger.ContextWithLogger(cmd.Context(), a.logger)
		report, err := a.indexer().IndexGraph(ctx, args[0])
		printReport(cmd.OutOrStdout(), report)
		return err
	},
}

var ldpCmd = &cobra.Command{
	Use:   "ldp",
	Short: "Read or patch resource graphs in the object store",
}

var ldpGetCmd = &cobra.Command{
	Use:   "get <iri>",
	Short: "Print the graph of a resource as N-Triples",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		triples, err := a.ldp.GetGraph(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.Serialize(triples))
		return nil
	},
}

var ldpPatchCmd = &cobra.Command{
	Use:   "patch <iri> <file|->",
	Short: "Insert N-Triples from a file (or stdin) into a resource graph",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if args[1] != "-" {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		triples, err := graph.ParseNTriples(in)
		if err != nil {
			return err
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.ldp.PatchGraph(cmd.Context(), args[0], triples); err != nil {
			return err
		}
		a.logger.Info("Patched resource", zap.String("iri", args[0]), zap.Int("triples", len(triples)))
		return nil
	},
}

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		if versionJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]string{
				"version":    version.Version,
				"commit":     version.Commit,
				"build_time": version.Date,
				"go_version": runtime.Version(),
			})
		}
		fmt.Fprintln(out, version.String())
		return nil
	},
}

func init() {
	crawlCmd.Flags().IntVar(&crawlDepth, "depth", 1, "containment levels to descend below the start resource")
	crawlCmd.Flags().StringVar(&crawlTopic, "topic", "objects", "topic that receives one message per visited resource")

	ldpCmd.AddCommand(ldpGetCmd)
	ldpCmd.AddCommand(ldpPatchCmd)

	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output as JSON")
}

func printReport(w io.Writer, rep batch.Report) {
	for _, r := range rep.Results {
		if r.Err() != nil {
			fmt.Fprintf(w, "%-8s %s: %v\n", r.Status(), r.ID(), r.Err())
			continue
		}
		fmt.Fprintf(w, "%-8s %s\n", r.Status(), r.ID())
	}
	fmt.Fprintf(w, "built=%d skipped=%d failed=%d\n", len(rep.Built()), len(rep.Skipped()), len(rep.Failed()))
}
