package commands

import (
	"fmt"
	"io"

	"mockils/pkg/types"

	"github.com/spf13/cobra"
)

var catSnapshot string

var catCmd = &cobra.Command{
	Use:   "cat [repository] [idn] [oid]",
	Short: "Show object content by oid",
	Long:  `Resolve the oid against the current directory listing (or a recorded snapshot) and write the file content to stdout.`,
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		oid, err := types.ParseOID(args[2])
		if err != nil {
			return err
		}

		b, err := currentBackend()
		if err != nil {
			return err
		}

		content, err := b.Object(cmd.Context(), args[0], args[1], oid, types.SnapshotID(catSnapshot))
		if err != nil {
			return fmt.Errorf("cat failed: %w", err)
		}
		defer content.Close()

		// 直接写 stdout：文本直接显示，二进制可以 > file.bin 重定向
		if _, err := io.Copy(cmd.OutOrStdout(), content); err != nil {
			return fmt.Errorf("cat failed: %w", err)
		}
		return nil
	},
}

func init() {
	catCmd.Flags().StringVar(&catSnapshot, "snapshot", "", "resolve the oid against a recorded manifest snapshot")
	rootCmd.AddCommand(catCmd)
}
