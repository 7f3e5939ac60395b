package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mlsq/internal/core/domain"
)

var (
	queryResource string
	queryClass    string
	queryFilter   string
	querySelect   []string
	queryLimit    int
	queryJSON     bool
)

var queryCmd = &cobra.Command{
	Use:   "query [profile]",
	Short: "Search a resource",
	Long: `Runs a search against a resource. The filter is a DMQL2 query for RETS
servers and an OData $filter expression for RESO servers. Without a filter
every record is matched.

Examples:
  mlsq query crmls --resource Property --class RES --filter "(ListPrice=300000+)" --limit 5
  mlsq query bridge --resource Property --filter "ListPrice gt 300000" --select ListingKey,ListPrice`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	f := queryCmd.Flags()
	f.StringVarP(&queryResource, "resource", "r", "", "resource or entity set to search")
	f.StringVarP(&queryClass, "class", "c", "", "RETS class")
	f.StringVarP(&queryFilter, "filter", "f", "", "DMQL2 query or OData $filter")
	f.StringSliceVarP(&querySelect, "select", "s", nil, "comma-separated fields to return")
	f.IntVarP(&queryLimit, "limit", "n", 10, "maximum number of rows (0 for server default)")
	f.BoolVar(&queryJSON, "json", false, "output results as JSON")
	_ = queryCmd.MarkFlagRequired("resource")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	spec := domain.QuerySpec{
		ResourceID: queryResource,
		ClassID:    queryClass,
		Filter:     queryFilter,
		Select:     querySelect,
		Limit:      queryLimit,
	}
	return withSession(cmd, args[0], func(ctx context.Context, handle domain.SessionHandle) error {
		rs, err := adapterService.RunQuery(ctx, handle, spec)
		if err != nil {
			return err
		}
		for _, w := range rs.Warnings {
			cmd.PrintErrln(warningStyle.Render("Warning: " + w.String()))
		}
		if queryJSON {
			return printJSON(cmd, rs)
		}
		return outputQueryTable(cmd, rs)
	})
}

func outputQueryTable(cmd *cobra.Command, rs *domain.ResultSet) error {
	if rs.Len() == 0 {
		cmd.Println("No records found.")
		return nil
	}

	rows := make([][]string, rs.Len())
	for i := range rs.Rows {
		rows[i] = rs.Rows[i].Values()
	}
	cmd.Println(renderTable(rs.Columns, rows))

	summary := fmt.Sprintf("%d record(s)", rs.Len())
	if rs.Count != domain.CountUnknown {
		summary += fmt.Sprintf(" of %d", rs.Count)
	}
	cmd.Println(mutedStyle.Render(summary))
	if rs.MaxRows {
		cmd.Println(warningStyle.Render("The server truncated the result at its row limit."))
	}
	return nil
}
