package cmd

import (
	"fmt"
	"strconv"

	"github.com/bnema/waykit/internal/config"
	"github.com/bnema/waykit/internal/ui"
	"github.com/bnema/waykit/registry"
	"github.com/spf13/cobra"
)

var globalsCmd = &cobra.Command{
	Use:   "globals",
	Short: "List the globals advertised by the compositor",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer c.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.FormatAppHeader("Globals", displayName(clientOptions(config.Get()).Display)))
		fmt.Fprintln(out, ui.Table([]string{"Name", "Interface", "Version"}, globalRows(c.Globals())))
		return nil
	},
}

func globalRows(globals []registry.Global) [][]string {
	rows := make([][]string, 0, len(globals))
	for _, g := range globals {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(g.Name), 10),
			g.Interface,
			strconv.FormatUint(uint64(g.Version), 10),
		})
	}
	return rows
}

func init() {
	rootCmd.AddCommand(globalsCmd)
}
