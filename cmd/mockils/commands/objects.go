package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var objectsCmd = &cobra.Command{
	Use:   "objects [repository] [idn]",
	Short: "Print the METS manifest of an artifact",
	Long: `Render the METS manifest exactly as GET /access/repositories/{repository}/artifacts/{idn}/objects does.
With a shared snapshot backend (snapshot.type redis or sql, or --remote), the snapshot id is printed
to stderr so it can be passed to 'mockils cat --snapshot'.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := currentBackend()
		if err != nil {
			return err
		}

		data, snap, err := b.Manifest(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("manifest failed: %w", err)
		}

		if !snap.IsZero() {
			fmt.Fprintf(cmd.ErrOrStderr(), "snapshot: %s\n", snap)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(objectsCmd)
}
