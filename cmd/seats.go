package cmd

import (
	"fmt"
	"strconv"

	"github.com/bnema/waykit/internal/ui"
	"github.com/bnema/waykit/seat"
	"github.com/spf13/cobra"
)

var seatsCmd = &cobra.Command{
	Use:   "seats",
	Short: "List seats and their capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer c.Close()

		seats := c.Seats().Seats()
		out := cmd.OutOrStdout()
		if len(seats) == 0 {
			fmt.Fprintln(out, ui.FormatStatus(false, "no seats"))
			return nil
		}
		rows := make([][]string, 0, len(seats))
		for _, s := range seats {
			rows = append(rows, seatRow(s.Name(), s.Info()))
		}
		fmt.Fprintln(out, ui.Table([]string{"Global", "Name", "Keyboard", "Pointer", "Touch"}, rows))
		return nil
	},
}

func seatRow(global uint32, info seat.Info) []string {
	name := info.Name
	if name == "" {
		name = "-"
	}
	return []string{
		strconv.FormatUint(uint64(global), 10),
		name,
		capabilityCell(info.HasKeyboard),
		capabilityCell(info.HasPointer),
		capabilityCell(info.HasTouch),
	}
}

func capabilityCell(present bool) string {
	if present {
		return "yes"
	}
	return "no"
}

func init() {
	rootCmd.AddCommand(seatsCmd)
}
