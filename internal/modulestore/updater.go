package modulestore

import (
	"context"
	"fmt"

	"github.com/zjrosen/discussions/internal/course"
	"github.com/zjrosen/discussions/internal/discussion"
	"github.com/zjrosen/discussions/internal/log"
)

// DiscussionBlockSource lists a course's discussion blocks.
type DiscussionBlockSource interface {
	DiscussionBlocks(ctx context.Context, key course.CourseKey) ([]*Block, error)
}

// Updater rebuilds the discussion-id map of a course's settings.
type Updater struct {
	blocks   DiscussionBlockSource
	settings discussion.SettingsRepository
}

// NewUpdater creates an Updater.
func NewUpdater(blocks DiscussionBlockSource, settings discussion.SettingsRepository) *Updater {
	return &Updater{blocks: blocks, settings: settings}
}

// DiscussionsIDMap maps discussion id to block location for blocks.
// Blocks without a discussion id are skipped; a later duplicate wins.
func DiscussionsIDMap(blocks []*Block) map[string]string {
	m := make(map[string]string, len(blocks))
	for _, b := range blocks {
		if b.DiscussionID == "" {
			continue
		}
		m[b.DiscussionID] = b.Location.String()
	}
	return m
}

// UpdateDiscussionsMap stores the current discussion-id map of key on its
// get-or-created settings record.
func (u *Updater) UpdateDiscussionsMap(ctx context.Context, key course.CourseKey) error {
	blocks, err := u.blocks.DiscussionBlocks(ctx, key)
	if err != nil {
		return fmt.Errorf("listing discussion blocks of %s: %w", key, err)
	}

	settings, err := discussion.GetOrCreateSettings(ctx, u.settings, key)
	if err != nil {
		return err
	}
	settings.SetDiscussionsIDMap(DiscussionsIDMap(blocks))
	if err := u.settings.SaveSettings(ctx, settings); err != nil {
		return fmt.Errorf("saving discussion map of %s: %w", key, err)
	}

	log.Info(log.CatModulestore, "discussion map updated", "course_id", key.String(), "discussions", len(settings.DiscussionsIDMap))
	return nil
}
