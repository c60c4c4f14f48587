package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/autodoc-backend/internal/app"
	"github.com/yungbote/autodoc-backend/internal/config"
	"github.com/yungbote/autodoc-backend/internal/domain"
	"github.com/yungbote/autodoc-backend/internal/modules/proposal/pipeline"
)

func newExtractCommand() *cobra.Command {
	var manual string
	var manualFile string
	var outDir string

	cmd := &cobra.Command{
		Use:   "extract [files...]",
		Short: "Run the pipeline over local files and write the record document",
		Long: `Run the pipeline over local files and write the record document.

Accepted files: .mp3 .wav .mp4 .mov .avi .pdf .docx. With no files the run is
manual-only and the document is named variables_manual.json; otherwise it is
variables_propuesta.json.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if manualFile != "" {
				b, err := os.ReadFile(manualFile)
				if err != nil {
					return fmt.Errorf("reading manual text: %w", err)
				}
				manual = string(b)
			}
			artifacts, err := artifactsFromPaths(args)
			if err != nil {
				return err
			}

			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			run, err := a.Pipeline.Run(ctx, pipeline.Input{Artifacts: artifacts, ManualText: manual})
			if err != nil {
				return err
			}
			path, err := writeDocument(outDir, run)
			if err != nil {
				return err
			}
			printSummary(cmd, run, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&manual, "manual", "", "Free-text notes appended after every file")
	cmd.Flags().StringVar(&manualFile, "manual-file", "", "Read manual notes from a file")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory for the record document")
	return cmd
}

func artifactsFromPaths(paths []string) ([]domain.Artifact, error) {
	out := make([]domain.Artifact, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", p, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("input %s is a directory", p)
		}
		art, err := domain.NewArtifact(filepath.Base(abs), abs)
		if err != nil {
			return nil, err
		}
		out = append(out, art)
	}
	return out, nil
}

func writeDocument(dir string, run *pipeline.Run) (string, error) {
	doc, err := run.Document()
	if err != nil {
		return "", fmt.Errorf("rendering record: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, run.Filename)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

func printSummary(cmd *cobra.Command, run *pipeline.Run, path string) {
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "run %s (%s): %s record written to %s\n", run.ID, run.Mode, run.Result.Kind, path)
	for _, e := range run.ArtifactErrors {
		fmt.Fprintf(w, "  skipped %s: %v\n", e.Name, e)
	}
	for _, wn := range run.Warnings {
		fmt.Fprintf(w, "  warning %s [%s]: %s\n", wn.Name, wn.Stage, wn.Message)
	}
	if run.Result.Err != nil {
		fmt.Fprintf(w, "  refinement: %v\n", run.Result.Err)
	}
}

