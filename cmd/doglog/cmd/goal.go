package cmd

import (
	"fmt"
	"log/slog"

	"github.com/doglog/doglog/internal/client"
	"github.com/doglog/doglog/internal/mastery"
	"github.com/spf13/cobra"
)

func GoalCmd() *cobra.Command {
	goalCmd := &cobra.Command{
		Use:   "goal",
		Short: "Manage training goals",
	}

	var description string
	addCmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a goal and generate its training steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goal, err := current.api.CreateGoal(cmd.Context(), args[0], description)
			if err != nil {
				return fmt.Errorf("unable to save goal: %w", err)
			}
			fmt.Printf("Goal saved: %s (%s)\n", goal.Title, goal.ID)

			notice := client.Notice{
				Mode:   client.NoticeModeError,
				Notice: "Goal saved, but AI generation failed. You can retry later.",
			}
			result, err := current.api.GenerateSteps(cmd.Context(), goal.ID)
			if err != nil {
				slog.Warn("step generation failed", "goal_id", goal.ID, "error", err)
			} else {
				notice = client.NoticeFor(result)
				for _, step := range result.Steps {
					fmt.Printf("  %d. %s (%d min)\n", step.StepOrder+1, step.Title, step.EstimatedMinutes)
				}
			}

			fmt.Println(notice.Notice)
			return client.SaveNotice(current.dataDir, notice)
		},
	}
	addCmd.Flags().StringVarP(&description, "description", "d", "", "What the goal is about")

	goalCmd.AddCommand(addCmd)
	return goalCmd
}

func TodayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's suggested goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := current.api.Suggested(cmd.Context())
			if err != nil {
				return err
			}

			if s.Goal == nil {
				fmt.Println("No goals to work on yet.")
				return nil
			}

			fmt.Printf("Today (%s): %s [%s]\n", s.Date, s.Goal.Title, s.Source)
			for _, step := range s.Goal.Steps {
				fmt.Printf("  %-11s %s (%d/%d)\n", step.Status, step.Title, step.ConsecutivePasses, mastery.Threshold)
			}
			if s.Notice != nil {
				fmt.Println(*s.Notice)
			}
			return nil
		},
	}
}
