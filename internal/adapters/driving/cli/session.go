package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mlsq/internal/core/domain"
)

// withSession resolves a profile, logs in, runs fn and logs out again.
func withSession(
	cmd *cobra.Command, profile string, fn func(ctx context.Context, handle domain.SessionHandle) error,
) error {
	if err := requireServices(); err != nil {
		return err
	}
	ctx := cmd.Context()

	conn, err := profileService.Resolve(ctx, profile)
	if err != nil {
		return err
	}
	handle, err := adapterService.Connect(ctx, conn)
	if err != nil {
		return err
	}
	defer adapterService.Disconnect(context.WithoutCancel(ctx), handle)

	return fn(ctx, handle)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
