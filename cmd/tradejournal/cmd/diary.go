package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradejournal/journal"
)

var diaryCmd = &cobra.Command{
	Use:   "diary <YYYY-MM-DD>",
	Short: "Write the diary entry for a day",
	Long: `Save notes, mood and images for a calendar day. The day's stats are not
touched. Flags that are not given keep their stored value.

Examples:
  tradejournal diary 2025-07-18 --notes "great day" --mood calm
  tradejournal diary 2025-07-18 --image charts/mnq-0718.png --image charts/es-0718.png`,
	Args: cobra.ExactArgs(1),
	RunE: runDiary,
}

var (
	diaryNotes  string
	diaryMood   string
	diaryImages []string
	diaryClear  bool
)

func init() {
	rootCmd.AddCommand(diaryCmd)

	diaryCmd.Flags().StringVar(&diaryNotes, "notes", "", "free-text notes")
	diaryCmd.Flags().StringVar(&diaryMood, "mood", "", "mood tag")
	diaryCmd.Flags().StringSliceVar(&diaryImages, "image", nil, "image path (repeatable)")
	diaryCmd.Flags().BoolVar(&diaryClear, "clear", false, "erase the diary entry")
}

func runDiary(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	owner, err := a.owner()
	if err != nil {
		return err
	}
	day, err := journal.ParseDay(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var d journal.Diary
	if !diaryClear {
		existing, err := a.store.GetAggregate(ctx, owner, day)
		switch {
		case err == nil:
			d = existing.Diary
		case !errors.Is(err, journal.ErrNotFound):
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("notes") {
			d.Notes = diaryNotes
		}
		if flags.Changed("mood") {
			d.Mood = diaryMood
		}
		if flags.Changed("image") {
			d.Images = diaryImages
		}
	}

	if err := a.store.SaveDiary(ctx, owner, day, d); err != nil {
		return fmt.Errorf("save diary: %w", err)
	}

	agg, err := a.store.GetAggregate(ctx, owner, day)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatDayOrg(agg))
	return nil
}
