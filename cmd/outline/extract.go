package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/dgallion1/docoutline/internal/app"
	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/pipeline"
	"github.com/spf13/cobra"
)

func extractCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <input-dir> <output-dir>",
		Short: "Write <name>.json with the outline of every supported file in a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			log := opts.logger()

			core, err := app.New(cfg, log)
			if err != nil {
				return err
			}
			defer core.Close()

			orch := pipeline.NewOrchestrator(cfg, core.Extractor, log)
			orch.Start(cmd.Context())
			defer orch.Stop()

			sum, err := runBatch(cmd.Context(), orch, args[0], args[1], cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d files, %d failed\n", sum.files, sum.failed)
			return nil
		},
	}
}

type summary struct {
	files  int
	failed int
}

// runBatch outlines every supported file in inDir into outDir. A file that
// fails still gets an empty outline and a FAILED report line; the batch
// continues.
func runBatch(ctx context.Context, orch *pipeline.Orchestrator, inDir, outDir string, report io.Writer) (summary, error) {
	entries, err := os.ReadDir(inDir)
	if err != nil {
		return summary{}, fmt.Errorf("reading input dir: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return summary{}, fmt.Errorf("creating output dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && parser.IsSupportedExtension(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	jobs := make([]*pipeline.Job, len(names))
	for i, name := range names {
		data, err := os.ReadFile(filepath.Join(inDir, name))
		job := pipeline.NewJob(name, data)
		jobs[i] = job
		if err != nil {
			job.Fail("reading", err)
			continue
		}
		if err := orch.Enqueue(ctx, job); err != nil {
			return summary{}, fmt.Errorf("queueing %s: %w", name, err)
		}
	}

	sum := summary{files: len(names)}
	for _, job := range jobs {
		if err := job.Wait(ctx); err != nil {
			return sum, err
		}
		snap := job.Snapshot()
		out := doctree.Empty("")
		if snap.Status == pipeline.StatusCompleted && snap.Outline != nil {
			out = *snap.Outline
			fmt.Fprintf(report, "%s\t%s\t%d headings\n", snap.Filename, snap.Tier, snap.Headings)
		} else {
			sum.failed++
			fmt.Fprintf(report, "%s\tFAILED\t%s\n", snap.Filename, snap.Error)
		}
		if err := writeOutline(filepath.Join(outDir, parser.Stem(snap.Filename)+".json"), out); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func writeOutline(path string, out doctree.Outline) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
