package cli

import (
	"context"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mlsq/internal/core/domain"
)

var (
	lookupsResource string
	lookupsClass    string
	lookupsJSON     bool
)

var lookupsCmd = &cobra.Command{
	Use:   "lookups [profile]",
	Short: "Show lookup values for a resource",
	Long: `Resolves the enumerated values of every lookup field of a resource.
For RESO collection fields without a declared enumeration the values are
sampled from live records and marked approximate.`,
	Args: cobra.ExactArgs(1),
	RunE: runLookups,
}

func init() {
	lookupsCmd.Flags().StringVarP(&lookupsResource, "resource", "r", "", "resource or entity set")
	lookupsCmd.Flags().StringVarP(&lookupsClass, "class", "c", "", "RETS class")
	lookupsCmd.Flags().BoolVar(&lookupsJSON, "json", false, "output lookups as JSON")
	_ = lookupsCmd.MarkFlagRequired("resource")
	rootCmd.AddCommand(lookupsCmd)
}

func runLookups(cmd *cobra.Command, args []string) error {
	return withSession(cmd, args[0], func(ctx context.Context, handle domain.SessionHandle) error {
		tables, err := adapterService.GetLookups(ctx, handle, lookupsResource, lookupsClass)
		if err != nil {
			return err
		}
		if lookupsJSON {
			return printJSON(cmd, tables)
		}
		return outputLookupsTable(cmd, tables)
	})
}

func outputLookupsTable(cmd *cobra.Command, tables map[string]domain.LookupTable) error {
	if len(tables) == 0 {
		cmd.Println("No lookup fields.")
		return nil
	}

	fields := make([]string, 0, len(tables))
	for name := range tables {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	var rows [][]string
	for _, field := range fields {
		table := tables[field]
		if table.Error != "" {
			cmd.PrintErrln(warningStyle.Render("Warning: " + field + ": " + table.Error))
			continue
		}
		name := field
		if table.Approximate {
			name += " (sampled)"
		}
		for _, v := range table.Values {
			rows = append(rows, []string{name, v.Value, v.Label})
		}
	}
	if len(rows) == 0 {
		cmd.Println("No lookup values.")
		return nil
	}
	cmd.Println(renderTable([]string{"FIELD", "VALUE", "LABEL"}, rows))
	return nil
}
