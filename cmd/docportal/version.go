package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sam02425/Document-Portal/internal/config"
	"github.com/sam02425/Document-Portal/internal/ocr"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and OCR engine information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "docportal %s\n", Version)
		fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)

		cfg := config.Default()
		info := ocr.NewTesseractEngine(cfg.OCR.Language, cfg.OCR.TessdataPrefix).Info()
		if info.Available {
			fmt.Fprintf(out, "  OCR: %s %s (%s)\n", info.Backend, info.Version, info.Language)
		} else {
			fmt.Fprintf(out, "  OCR: unavailable (%s)\n", info.Error)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
