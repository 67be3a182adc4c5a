package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bnema/waykit/internal/ui"
	"github.com/bnema/waykit/output"
	"github.com/spf13/cobra"
)

var outputsCmd = &cobra.Command{
	Use:     "outputs",
	Aliases: []string{"monitors"},
	Short:   "List outputs with their modes and logical geometry",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer c.Close()

		infos := c.Outputs().Outputs()
		out := cmd.OutOrStdout()
		if len(infos) == 0 {
			fmt.Fprintln(out, ui.FormatStatus(false, "no outputs"))
			return nil
		}

		verbose, _ := cmd.Flags().GetBool("modes")
		fmt.Fprintln(out, ui.Table(
			[]string{"ID", "Name", "Make / Model", "Mode", "Scale", "Transform", "Logical"},
			outputRows(infos),
		))
		if verbose {
			for _, info := range infos {
				fmt.Fprintln(out, ui.SubheaderStyle.Render(outputName(info)))
				for _, m := range info.Modes {
					fmt.Fprintln(out, ui.FormatListItem(modeLabel(m), m.Current))
				}
			}
		}
		return nil
	},
}

func outputName(info output.Info) string {
	if info.Name != "" {
		return info.Name
	}
	return "output-" + strconv.FormatUint(uint64(info.ID), 10)
}

func outputRows(infos []output.Info) [][]string {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		mode := "-"
		if m, ok := info.CurrentMode(); ok {
			mode = m.String()
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(info.ID), 10),
			outputName(info),
			strings.TrimSpace(info.Make + " " + info.Model),
			mode,
			strconv.Itoa(int(info.ScaleFactor)),
			info.Transform.String(),
			logicalGeometry(info),
		})
	}
	return rows
}

func logicalGeometry(info output.Info) string {
	if info.LogicalSize.Width == 0 && info.LogicalSize.Height == 0 {
		return "-"
	}
	return fmt.Sprintf("%dx%d+%d+%d",
		info.LogicalSize.Width, info.LogicalSize.Height,
		info.LogicalPosition.X, info.LogicalPosition.Y)
}

func modeLabel(m output.Mode) string {
	var flags []string
	if m.Current {
		flags = append(flags, "current")
	}
	if m.Preferred {
		flags = append(flags, "preferred")
	}
	if len(flags) == 0 {
		return m.String()
	}
	return m.String() + " (" + strings.Join(flags, ", ") + ")"
}

func init() {
	rootCmd.AddCommand(outputsCmd)
	outputsCmd.Flags().Bool("modes", false, "List every mode of each output")
}
