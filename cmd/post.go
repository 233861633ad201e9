package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/discussions/internal/discussion"
)

var (
	postDomain      string
	postEvent       string
	postID          string
	postCourseID    string
	postTitle       string
	postBody        string
	postUserID      int64
	postUsername    string
	postCommentable string
	postThreadID    string
	postThreadUser  int64
	postThreadTitle string
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Send a thread or comment signal as the forum would",
}

func postSubCmd(postType discussion.PostType) *cobra.Command {
	c := &cobra.Command{
		Use:   string(postType),
		Short: fmt.Sprintf("Send a %s signal (%s_<event>)", postType, postType),
		RunE: func(cmd *cobra.Command, _ []string) error {
			post := &eventPost{
				ID:            postID,
				Type:          string(postType),
				Title:         postTitle,
				Body:          postBody,
				CourseID:      postCourseID,
				UserID:        postUserID,
				CommentableID: postCommentable,
				CreatedAt:     time.Now().UTC(),
			}
			if postType == discussion.PostTypeComment {
				if postThreadID == "" {
					return fmt.Errorf("--thread-id is required for comments")
				}
				post.Thread = &eventPost{
					ID:            postThreadID,
					Type:          string(discussion.PostTypeThread),
					Title:         postThreadTitle,
					CourseID:      postCourseID,
					UserID:        postThreadUser,
					CommentableID: postCommentable,
				}
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			result := dispatchEvent(cmd.Context(), a, event{
				Signal: string(postType) + "_" + postEvent,
				Domain: postDomain,
				User:   eventUser{ID: postUserID, Username: postUsername},
				Post:   post,
			})
			if err := formatter(cmd).Format(result); err != nil {
				return err
			}
			if result.Error != "" {
				return fmt.Errorf("%s: %s", result.Signal, result.Error)
			}
			return nil
		},
	}

	f := c.Flags()
	f.StringVar(&postDomain, "domain", "", "Request domain (default: site.domain)")
	f.StringVar(&postEvent, "event", "created", "Event: created, edited, deleted, voted (comments also endorsed)")
	f.StringVar(&postID, "id", "", "Post id")
	f.StringVar(&postCourseID, "course", "", "Course id")
	f.StringVar(&postTitle, "title", "", "Title")
	f.StringVar(&postBody, "body", "", "Body")
	f.Int64Var(&postUserID, "user", 0, "Author user id")
	f.StringVar(&postUsername, "username", "", "Author username")
	f.StringVar(&postCommentable, "commentable-id", "", "Discussion id the post belongs to")
	_ = c.MarkFlagRequired("id")
	_ = c.MarkFlagRequired("course")
	if postType == discussion.PostTypeComment {
		f.StringVar(&postThreadID, "thread-id", "", "Parent thread id")
		f.Int64Var(&postThreadUser, "thread-user", 0, "Parent thread author user id")
		f.StringVar(&postThreadTitle, "thread-title", "", "Parent thread title")
	}
	return c
}

func init() {
	postCmd.AddCommand(postSubCmd(discussion.PostTypeThread), postSubCmd(discussion.PostTypeComment))
	rootCmd.AddCommand(postCmd)
}
