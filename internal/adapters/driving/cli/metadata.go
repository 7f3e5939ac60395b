package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mlsq/internal/core/domain"
)

var metadataOutput string

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Metadata commands",
}

var metadataExportCmd = &cobra.Command{
	Use:   "export [profile]",
	Short: "Export raw server metadata",
	Long: `Writes the metadata documents exactly as the server returned them:
RETS METADATA XML or the RESO $metadata CSDL document.`,
	Args: cobra.ExactArgs(1),
	RunE: runMetadataExport,
}

func init() {
	metadataExportCmd.Flags().StringVarP(&metadataOutput, "output", "o", "", "write to file instead of stdout")
	metadataCmd.AddCommand(metadataExportCmd)
	rootCmd.AddCommand(metadataCmd)
}

func runMetadataExport(cmd *cobra.Command, args []string) error {
	return withSession(cmd, args[0], func(ctx context.Context, handle domain.SessionHandle) error {
		raw, err := adapterService.ExportMetadata(ctx, handle)
		if err != nil {
			return err
		}
		data := raw.Bytes()

		if metadataOutput == "" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(metadataOutput, data, 0o644); err != nil {
			return fmt.Errorf("writing metadata: %w", err)
		}
		cmd.Printf("Wrote %d bytes of %s to %s\n", len(data), raw.ContentType, metadataOutput)
		return nil
	})
}
