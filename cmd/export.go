package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/blockplan/infra/ical"
)

var (
	exportOut  string
	exportWeek string
	exportTZ   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the latest stored plan as an iCalendar file",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&exportWeek, "week", "", "first day of the exported week (YYYY-MM-DD, default today)")
	exportCmd.Flags().StringVar(&exportTZ, "tz", "UTC", "IANA time zone of the plan")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	loc, err := time.LoadLocation(exportTZ)
	if err != nil {
		return fmt.Errorf("invalid --tz: %w", err)
	}
	week := time.Now().In(loc)
	if exportWeek != "" {
		if week, err = time.ParseInLocation(time.DateOnly, exportWeek, loc); err != nil {
			return fmt.Errorf("invalid --week: %w", err)
		}
	}
	svc, closeFn, err := newService(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	w := cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return svc.Export(cmd.Context(), w, ical.Options{WeekOf: week, Location: loc})
}
