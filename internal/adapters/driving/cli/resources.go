package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mlsq/internal/core/domain"
)

var resourcesJSON bool

var resourcesCmd = &cobra.Command{
	Use:   "resources [profile]",
	Short: "List resources, classes and fields",
	Long: `Logs in with a saved profile, fetches the server metadata and lists
every resource (RETS) or entity set (RESO) with its classes and field counts.`,
	Args: cobra.ExactArgs(1),
	RunE: runResources,
}

func init() {
	resourcesCmd.Flags().BoolVar(&resourcesJSON, "json", false, "output the metadata graph as JSON")
	rootCmd.AddCommand(resourcesCmd)
}

func runResources(cmd *cobra.Command, args []string) error {
	return withSession(cmd, args[0], func(ctx context.Context, handle domain.SessionHandle) error {
		graph, err := adapterService.ListResources(ctx, handle)
		if err != nil {
			return err
		}
		if resourcesJSON {
			return printJSON(cmd, graph)
		}
		return outputResourcesTable(cmd, graph)
	})
}

func outputResourcesTable(cmd *cobra.Command, graph *domain.MetadataGraph) error {
	if graph.System.ID != "" {
		cmd.Println(titleStyle.Render(graph.System.ID) + " " + mutedStyle.Render(graph.System.Description))
	}
	if len(graph.Resources) == 0 {
		cmd.Println("No resources published.")
		return nil
	}

	var rows [][]string
	for i := range graph.Resources {
		res := &graph.Resources[i]
		if len(res.Classes) == 0 {
			rows = append(rows, []string{res.ID, "", res.Label, res.KeyField, strconv.Itoa(len(res.Fields))})
		}
		for _, c := range res.Classes {
			rows = append(rows, []string{res.ID, c.ID, c.Label, res.KeyField, strconv.Itoa(len(c.Fields))})
		}
	}
	cmd.Println(renderTable([]string{"RESOURCE", "CLASS", "LABEL", "KEY", "FIELDS"}, rows))

	for i := range graph.Resources {
		res := &graph.Resources[i]
		for _, g := range res.Gaps {
			cmd.PrintErrln(warningStyle.Render("Incomplete: " + res.ID + " " + g.Type + ": " + g.Reason))
		}
		for _, c := range res.Classes {
			for _, g := range c.Gaps {
				cmd.PrintErrln(warningStyle.Render("Incomplete: " + res.ID + ":" + c.ID + " " + g.Type + ": " + g.Reason))
			}
		}
	}
	return nil
}
