package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zjrosen/discussions/internal/config"
	"github.com/zjrosen/discussions/internal/course"
	"github.com/zjrosen/discussions/internal/presentation"
)

var flagCourseID string

var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "Show and change feature flags",
}

var flagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List global and per-course flag values from the config",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return formatter(cmd).Format(presentation.FromFlagValues(cfg.Flags, cfg.CourseFlagMap()))
	},
}

var flagsSetCmd = &cobra.Command{
	Use:   "set NAME true|false",
	Short: "Write a flag value to the config file",
	Long: `Write a flag value to the config file. With --course the value applies
to that course only and wins over the global value. A running listen
picks the change up without a restart.

Examples:
  discussions flags set enable-profanity-checker true
  discussions flags set enable-profanity-checker true --course course-v1:edX+DemoX+Demo_Course`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		enabled, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("flag value must be true or false, got %q", args[1])
		}

		if flagCourseID != "" {
			if _, err := course.ParseCourseKey(flagCourseID); err != nil {
				return err
			}
			err = config.SetCourseFlag(configPath, flagCourseID, name, enabled)
		} else {
			err = config.SetFlag(configPath, name, enabled)
		}
		if err != nil {
			return err
		}
		return formatter(cmd).Format(presentation.FlagDTO{Name: name, CourseID: flagCourseID, Enabled: enabled})
	},
}

func init() {
	flagsSetCmd.Flags().StringVar(&flagCourseID, "course", "", "Apply the value to one course")
	flagsCmd.AddCommand(flagsListCmd, flagsSetCmd)
	rootCmd.AddCommand(flagsCmd)
}
