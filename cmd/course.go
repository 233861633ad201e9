package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/discussions/internal/course"
	"github.com/zjrosen/discussions/internal/modulestore"
	"github.com/zjrosen/discussions/internal/presentation"
)

var (
	itemParent       string
	itemName         string
	itemDisplayName  string
	itemDiscussionID string
	itemCategory     string
)

var courseCmd = &cobra.Command{
	Use:   "course",
	Short: "Manage course structure and its discussion map",
}

var courseCreateCmd = &cobra.Command{
	Use:   "create ORG COURSE RUN",
	Short: "Create a course run and publish it",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		c, err := a.Modulestore.CreateCourse(a.RequestContext(cmd.Context(), ""), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		return formatter(cmd).Format(presentation.FromDomainCourse(c))
	},
}

var courseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List courses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		courses, err := a.Modulestore.Courses(cmd.Context())
		if err != nil {
			return err
		}
		return formatter(cmd).Format(presentation.FromDomainCourses(courses))
	},
}

func addItemCmd(use, short, category string) *cobra.Command {
	c := &cobra.Command{
		Use:   use + " COURSE_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := course.ParseCourseKey(args[0])
			if err != nil {
				return err
			}
			parent := key.RootUsageKey()
			if itemParent != "" {
				if parent, err = course.ParseUsageKey(itemParent); err != nil {
					return err
				}
			}
			cat := category
			if cat == "" {
				cat = itemCategory
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			block, err := a.Modulestore.CreateItem(a.RequestContext(cmd.Context(), ""), modulestore.ItemInput{
				Parent:       parent,
				Category:     cat,
				Name:         itemName,
				DisplayName:  itemDisplayName,
				DiscussionID: itemDiscussionID,
			})
			if err != nil {
				return err
			}
			return formatter(cmd).Format(presentation.FromDomainBlock(block))
		},
	}
	c.Flags().StringVar(&itemParent, "parent", "", "Parent block location (default: the course root)")
	c.Flags().StringVar(&itemName, "name", "", "Block id (default: generated)")
	c.Flags().StringVar(&itemDisplayName, "display-name", "", "Display name")
	return c
}

var courseBlocksCmd = &cobra.Command{
	Use:   "blocks COURSE_ID",
	Short: "List the blocks of a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := course.ParseCourseKey(args[0])
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		blocks, err := a.Modulestore.Blocks(cmd.Context(), key)
		if err != nil {
			return err
		}
		dtos := make([]presentation.BlockDTO, len(blocks))
		for i, b := range blocks {
			dtos[i] = presentation.FromDomainBlock(b)
		}
		return formatter(cmd).Format(dtos)
	},
}

var courseMapCmd = &cobra.Command{
	Use:   "map COURSE_ID",
	Short: "Show the discussion settings and discussion-id map of a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := course.ParseCourseKey(args[0])
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		settings, err := a.DB.SettingsRepository().FindSettings(cmd.Context(), key)
		if err != nil {
			return err
		}
		return formatter(cmd).Format(presentation.FromDomainSettings(settings))
	},
}

var coursePublishCmd = &cobra.Command{
	Use:   "publish COURSE_ID",
	Short: "Emit course_published for a course without changing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := course.ParseCourseKey(args[0])
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if _, err := a.Modulestore.Course(cmd.Context(), key); err != nil {
			return err
		}
		a.Modulestore.Publish(a.RequestContext(cmd.Context(), ""), key)
		return formatter(cmd).Format(presentation.DispatchDTO{Signal: modulestore.SignalCoursePublished})
	},
}

func init() {
	addDiscussion := addItemCmd("add-discussion", "Add an inline discussion block", course.CategoryDiscussion)
	addDiscussion.Flags().StringVar(&itemDiscussionID, "discussion-id", "", "Discussion id (default: the block id)")

	addItem := addItemCmd("add-item", "Add a block of any category", "")
	addItem.Flags().StringVar(&itemCategory, "category", "", "Block category, e.g. chapter or vertical")
	_ = addItem.MarkFlagRequired("category")

	courseCmd.AddCommand(courseCreateCmd, courseListCmd, addDiscussion, addItem,
		courseBlocksCmd, courseMapCmd, coursePublishCmd)
	rootCmd.AddCommand(courseCmd)
}
