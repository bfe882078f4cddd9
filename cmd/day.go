package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/blockplan/app"
	"github.com/kilianp07/blockplan/core/model"
)

var (
	dayFlag      string
	modeFlag     string
	locationFlag string
)

var recalcCmd = &cobra.Command{
	Use:   "recalc <pool-file>",
	Short: "Simulate travel for one day and store the adjusted blocks",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecalc,
}

var validateCmd = &cobra.Command{
	Use:   "validate <pool-file> <title> <start> <end>",
	Short: "Check whether a block fits a day once travel is accounted for",
	Args:  cobra.ExactArgs(4),
	RunE:  runValidate,
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Insert, swap or delete blocks of a stored day and re-simulate it",
}

var insertCmd = &cobra.Command{
	Use:   "insert <pool-file> <title> <start> <end>",
	Short: "Insert a block after checking that it fits",
	Args:  cobra.ExactArgs(4),
	RunE:  runInsert,
}

var swapCmd = &cobra.Command{
	Use:   "swap <pool-file> <i> <j>",
	Short: "Exchange the time slots of two blocks",
	Args:  cobra.ExactArgs(3),
	RunE:  runSwap,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <pool-file> <i>",
	Short: "Remove a block",
	Args:  cobra.ExactArgs(2),
	RunE:  runDelete,
}

func init() {
	for _, c := range []*cobra.Command{recalcCmd, validateCmd, insertCmd, swapCmd, deleteCmd} {
		c.Flags().StringVar(&dayFlag, "date", "", "day to use (YYYY-MM-DD), overrides the input file")
		c.Flags().StringVar(&modeFlag, "mode", "", "travel mode: normal, driving, transit, walking or bicycling")
	}
	insertCmd.Flags().StringVar(&locationFlag, "location", "", "address of the inserted block (default: no travel)")
	editCmd.AddCommand(insertCmd, swapCmd, deleteCmd)
	rootCmd.AddCommand(recalcCmd, validateCmd, editCmd)
}

func loadDayInput(path string) (app.Input, error) {
	in, err := app.LoadInput(path)
	if err != nil {
		return in, err
	}
	if dayFlag != "" {
		d, err := time.Parse(time.DateOnly, dayFlag)
		if err != nil {
			return in, fmt.Errorf("invalid --date: %w", err)
		}
		in.Date = d
	}
	if modeFlag != "" {
		m, err := model.ParseTravelMode(modeFlag)
		if err != nil {
			return in, err
		}
		in.Mode = m
	}
	return in, nil
}

func runRecalc(cmd *cobra.Command, args []string) error {
	in, err := loadDayInput(args[0])
	if err != nil {
		return err
	}
	svc, closeFn, err := newService(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	sim, err := svc.Recalculate(cmd.Context(), in)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), sim)
}

// candidateBlock builds a dated block from title, start and end arguments.
func candidateBlock(date time.Time, args []string) (model.TimeBlock, error) {
	start, err := model.ParseClock(args[1])
	if err != nil {
		return model.TimeBlock{}, err
	}
	end, err := model.ParseClock(args[2])
	if err != nil {
		return model.TimeBlock{}, err
	}
	return model.TimeBlock{Title: args[0], Date: date, Start: start, End: end}, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	in, err := loadDayInput(args[0])
	if err != nil {
		return err
	}
	candidate, err := candidateBlock(in.Date, args[1:])
	if err != nil {
		return err
	}
	svc, closeFn, err := newService(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	v, err := svc.ValidatePlacement(cmd.Context(), in, candidate)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), v)
}

func runEdit(cmd *cobra.Command, path string, edit app.DayEdit) error {
	in, err := loadDayInput(path)
	if err != nil {
		return err
	}
	if edit.Op == app.EditInsert {
		edit.Block.Date = in.Date
	}
	svc, closeFn, err := newService(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	sim, err := svc.EditDay(cmd.Context(), in, edit)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), sim)
}

func runInsert(cmd *cobra.Command, args []string) error {
	b, err := candidateBlock(time.Time{}, args[1:])
	if err != nil {
		return err
	}
	if locationFlag != "" {
		b.Location = &model.Location{Kind: model.LocationAddress, Address: locationFlag}
	}
	return runEdit(cmd, args[0], app.DayEdit{Op: app.EditInsert, Block: b})
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q: %w", s, err)
	}
	return i, nil
}

func runSwap(cmd *cobra.Command, args []string) error {
	i, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	j, err := parseIndex(args[2])
	if err != nil {
		return err
	}
	return runEdit(cmd, args[0], app.DayEdit{Op: app.EditSwap, I: i, J: j})
}

func runDelete(cmd *cobra.Command, args []string) error {
	i, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	return runEdit(cmd, args[0], app.DayEdit{Op: app.EditDelete, I: i})
}
