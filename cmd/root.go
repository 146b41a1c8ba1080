package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "moodreel",
	Short: "Turn photos of a person into a mood-scored slideshow video",
	Long: `Moodreel finds a chosen person in a batch of photos, reads the
emotions on their face, and renders the matching photos into a slideshow
video with a procedurally generated soundtrack that fits the mood.`,
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
