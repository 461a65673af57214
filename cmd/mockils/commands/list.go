package commands

import (
	"fmt"

	"mockils/pkg/manifest"

	"github.com/spf13/cobra"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List repositories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := currentBackend()
		if err != nil {
			return err
		}
		names, err := b.Repositories(cmd.Context())
		if err != nil {
			return fmt.Errorf("list repositories failed: %w", err)
		}
		return printNames(cmd, names)
	},
}

var artifactsCmd = &cobra.Command{
	Use:   "artifacts [repository]",
	Short: "List artifacts of a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := currentBackend()
		if err != nil {
			return err
		}
		names, err := b.Artifacts(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("list artifacts failed: %w", err)
		}
		return printNames(cmd, names)
	},
}

// printNames 默认一行一个名字，--xml 时输出和 HTTP 接口相同的文档
func printNames(cmd *cobra.Command, names []string) error {
	out := cmd.OutOrStdout()
	if asXML, _ := cmd.Flags().GetBool("xml"); asXML {
		data, err := manifest.RenderNameList(names)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
	return nil
}

func init() {
	reposCmd.Flags().Bool("xml", false, "print the XML name list instead of plain lines")
	artifactsCmd.Flags().Bool("xml", false, "print the XML name list instead of plain lines")
	rootCmd.AddCommand(reposCmd, artifactsCmd)
}
