package cmd

import (
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/wegman-software/poimatch-go/internal/poi"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the provider catalog",
	Long: `Print every provider of the catalog with its name, base URL and
the common tags it adds to records of that code.`,
	Args: cobra.NoArgs,
	Run:  runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)

	providersCmd.Flags().StringVar(&cfg.CatalogFile, "catalog", cfg.CatalogFile, "Provider catalog YAML (required)")
}

func runProviders(cmd *cobra.Command, args []string) {
	if cfg.CatalogFile == "" {
		exitWithError("missing --catalog file", nil)
	}

	catalog, err := poi.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		exitWithError("failed to load catalog", err)
	}

	table := tablewriter.NewTable(os.Stdout)
	table.Header("Code", "Name", "URL base", "Tags")
	for _, code := range catalog.Codes() {
		p, _ := catalog.Get(code)
		if err := table.Append(p.Code, p.Name, p.URLBase, formatTags(p.Tags)); err != nil {
			exitWithError("failed to render catalog", err)
		}
	}
	if err := table.Render(); err != nil {
		exitWithError("failed to render catalog", err)
	}
}

func formatTags(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + tags[k]
	}
	return strings.Join(pairs, " ")
}
