package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "drastic",
	Short: "Event-driven LDP graph sync pipeline",
	Long: `drastic keeps derived views of an LDP object store in step with it.

Commands:
  serve     - Run every pipeline stage and the admin API
  crawl     - Request a containment crawl from a resource
  assemble  - Build the paged documents of one submission
  index     - Index one graph into the search index
  ldp       - Read or patch resource graphs in the object store
  version   - Show build information

Configuration is read from config/<ENV>.yaml (ENV defaults to local)
unless --config is given.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(assembleCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(ldpCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
