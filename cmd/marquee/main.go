package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styleError.Render(err.Error()))
		os.Exit(1)
	}
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "marquee",
		Short: "Browse popular movies, search titles and watch trailers",
		Long: "Marquee browses the TMDb catalog from your terminal.\n" +
			"It lists popular movies, searches by title, keeps a local favorites list\n" +
			"and opens YouTube trailers.",
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/marquee.yaml", "path to configuration file")

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(
		newVersionCmd(),
		newBrowseCmd(),
		newPopularCmd(),
		newSearchCmd(),
		newFavoritesCmd(),
		newServeCmd(),
		newBotCmd(),
		newMCPServeCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("Marquee v%s\n", version)
		},
	}
}
