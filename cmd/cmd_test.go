package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/discussions/internal/app"
	"github.com/zjrosen/discussions/internal/config"
	"github.com/zjrosen/discussions/internal/discussion"
	"github.com/zjrosen/discussions/internal/discussion/handlers"
	"github.com/zjrosen/discussions/internal/flags"
	"github.com/zjrosen/discussions/internal/presentation"
)

const demoCourseID = "course-v1:edX+DemoX+Demo_Course"

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	c := config.Defaults()
	c.Database.Path = filepath.Join(t.TempDir(), "discussions.db")
	c.Profanity.Words = []string{"darn"}
	a, err := app.New(c, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		flagCourseID = ""
		reportCourse = ""
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDecodeEvent(t *testing.T) {
	line := []byte(`{"signal":"comment_created","domain":"example.com","user":{"id":8,"username":"ann"},
		"post":{"id":"c1","type":"comment","course_id":"` + demoCourseID + `","user_id":8,"body":"hi",
		"thread":{"id":"t1","type":"thread","user_id":7,"title":"Q"}}}`)

	ev, err := decodeEvent(line)
	require.NoError(t, err)
	require.Equal(t, discussion.SignalCommentCreated, ev.Signal)
	require.Equal(t, "example.com", ev.Domain)

	post := ev.Post.toDomain()
	require.Equal(t, discussion.PostTypeComment, post.Type)
	require.Equal(t, int64(8), post.UserID)
	require.NotNil(t, post.Thread)
	require.Equal(t, "t1", post.Thread.ID)
	require.Equal(t, int64(7), post.Thread.UserID)
	require.Nil(t, post.Thread.Thread)
}

func TestDecodeEvent_Errors(t *testing.T) {
	_, err := decodeEvent([]byte(`{not json`))
	require.ErrorContains(t, err, "decoding event")

	_, err = decodeEvent([]byte(`{"post":{"id":"x"}}`))
	require.ErrorContains(t, err, "signal is required")
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{raw: "true", want: true},
		{raw: "3", want: 3},
		{raw: "hello", want: "hello"},
		{raw: `"true"`, want: "true"},
		{raw: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseValue(tt.raw)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestHandleLine_CommentNotifiesAndScreens(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	_, err := a.Sites.CreateSite(ctx, "example.com", "")
	require.NoError(t, err)
	_, err = a.Sites.SetValue(ctx, "example.com", handlers.EnableForumNotificationsForSiteKey, true)
	require.NoError(t, err)
	restore := a.Flags.Override(flags.FlagProfanityChecker, true)
	defer restore()

	line := []byte(`{"signal":"comment_created","domain":"example.com","user":{"id":8},
		"post":{"id":"c1","type":"comment","course_id":"` + demoCourseID + `","user_id":8,"body":"darn it",
		"thread":{"id":"t1","type":"thread","user_id":7}}}`)

	result := handleLine(ctx, a, line)
	require.Equal(t, presentation.DispatchDTO{Signal: discussion.SignalCommentCreated, PostID: "c1"}, result)

	outbox, err := a.Notifier.ListOutbox(ctx, 7, 0)
	require.NoError(t, err)
	require.Len(t, outbox, 1)

	reports, err := a.DB.ReportStore().ListReports(ctx, demoCourseID)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Equal(t, "c1", reports[0].PostID)
}

func TestHandleLine_CoursePublished(t *testing.T) {
	a := newTestApp(t)
	ctx := a.RequestContext(context.Background(), "")
	c, err := a.Modulestore.CreateCourse(ctx, "edX", "DemoX", "Demo_Course")
	require.NoError(t, err)

	result := handleLine(context.Background(), a, []byte(`{"signal":"course_published","course_id":"`+demoCourseID+`"}`))
	require.Empty(t, result.Error)

	settings, err := a.DB.SettingsRepository().FindSettings(ctx, c.Key)
	require.NoError(t, err)
	require.Equal(t, map[string]string{}, settings.DiscussionsIDMap)
}

func TestHandleLine_ReportsErrors(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		name string
		line string
		want string
	}{
		{name: "bad json", line: `{`, want: "decoding event"},
		{name: "unknown signal", line: `{"signal":"thread_flagged","post":{"id":"t1"}}`, want: "unknown signal"},
		{name: "missing post", line: `{"signal":"thread_created"}`, want: "post is required"},
		{name: "bad course id", line: `{"signal":"course_published","course_id":"nope"}`, want: "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := handleLine(context.Background(), a, []byte(tt.line))
			require.Contains(t, result.Error, tt.want)
		})
	}
}

func TestFlagsSetAndList(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.WriteDefaultConfig(configFile))

	_, err := execute(t, "--config", configFile, "flags", "set", flags.FlagProfanityChecker, "true", "--course", demoCourseID)
	require.NoError(t, err)

	out, err := execute(t, "--config", configFile, "flags", "list")
	require.NoError(t, err)

	var got []presentation.FlagDTO
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, []presentation.FlagDTO{
		{Name: flags.FlagProfanityChecker, Enabled: false},
		{Name: flags.FlagProfanityChecker, CourseID: demoCourseID, Enabled: true},
	}, got)
}

func TestFlagsSet_RejectsBadValue(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.WriteDefaultConfig(configFile))

	_, err := execute(t, "--config", configFile, "flags", "set", flags.FlagProfanityChecker, "maybe")
	require.ErrorContains(t, err, "true or false")
}

func TestCourseCreateAndMap(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.WriteDefaultConfig(configFile))
	db := filepath.Join(dir, "discussions.db")

	_, err := execute(t, "--config", configFile, "--db", db, "course", "create", "edX", "DemoX", "Demo_Course")
	require.NoError(t, err)

	out, err := execute(t, "--config", configFile, "--db", db, "course", "map", demoCourseID)
	require.NoError(t, err)

	var settings presentation.SettingsDTO
	require.NoError(t, json.Unmarshal([]byte(out), &settings))
	require.Equal(t, demoCourseID, settings.CourseID)
	require.Equal(t, map[string]string{}, settings.DiscussionsIDMap)
	require.Equal(t, "none", settings.DivisionScheme)
}
