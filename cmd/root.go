package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "picpress",
	Short: "Assemble ordered images into a multi-page PDF",
	Long: `Picpress takes an ordered list of images and produces a single
multi-page PDF, one image per page, each image scaled and centered to
preserve its aspect ratio within a fixed page size.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
