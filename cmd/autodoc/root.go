package main

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autodoc",
		Short: "autodoc - build commercial proposal records from meeting material",
		Long: `autodoc turns meeting recordings, videos, PDFs, DOCX files and free text
into a proposal record.

Every run assembles one text corpus (product specification first, then each
file in order, then manual notes), extracts a preliminary record with NER and
refines it with a generative model constrained to a fixed JSON shape.`,
		Version:      version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String("config", "", "YAML config file (defaults to $AUTODOC_CONFIG)")

	cmd.AddCommand(newExtractCommand())
	cmd.AddCommand(newServeCommand())
	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}
