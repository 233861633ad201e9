// Package profanity screens forum posts against a word list and records
// a report for every post that matches.
package profanity

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/zjrosen/discussions/internal/log"
)

// Check is the post content submitted for screening.
type Check struct {
	PostID    string
	PostTitle string
	PostBody  string
	PostType  string
	CourseID  string
}

// Result is the outcome of one check.
type Result struct {
	PostID  string
	Flagged bool
	// Terms are the matched words in normalized form, sorted and unique.
	Terms []string
}

// Report is the persisted record of a flagged post.
type Report struct {
	ID        int64
	PostID    string
	PostType  string
	CourseID  string
	Terms     []string
	CreatedAt time.Time
}

// ReportStore persists reports.
type ReportStore interface {
	SaveReport(ctx context.Context, r *Report) error
	ListReports(ctx context.Context, courseID string) ([]*Report, error)
}

// Checker matches posts against a normalized word list.
type Checker struct {
	store ReportStore
	now   func() time.Time

	mu    sync.RWMutex
	words map[string]struct{}
}

// NewChecker creates a Checker for words. A nil store skips persistence.
func NewChecker(words []string, store ReportStore) *Checker {
	c := &Checker{store: store, now: time.Now}
	c.SetWords(words)
	return c
}

// SetWords replaces the word list.
func (c *Checker) SetWords(words []string) {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if n := Normalize(w); n != "" {
			set[n] = struct{}{}
		}
	}
	c.mu.Lock()
	c.words = set
	c.mu.Unlock()
}

// CheckForProfanityAndReport screens the title and body of a post and
// stores a Report when any listed word appears.
func (c *Checker) CheckForProfanityAndReport(ctx context.Context, check Check) (*Result, error) {
	terms := c.match(check.PostTitle + " " + check.PostBody)
	result := &Result{PostID: check.PostID, Flagged: len(terms) > 0, Terms: terms}
	if !result.Flagged {
		log.Debug(log.CatProfanity, "post clean", "post_id", check.PostID, "post_type", check.PostType)
		return result, nil
	}

	log.Warn(log.CatProfanity, "profanity detected", "post_id", check.PostID, "post_type", check.PostType,
		"course_id", check.CourseID, "terms", len(terms))
	if c.store == nil {
		return result, nil
	}
	report := &Report{
		PostID:    check.PostID,
		PostType:  check.PostType,
		CourseID:  check.CourseID,
		Terms:     terms,
		CreatedAt: c.now(),
	}
	if err := c.store.SaveReport(ctx, report); err != nil {
		return result, fmt.Errorf("saving profanity report for %s: %w", check.PostID, err)
	}
	return result, nil
}

func (c *Checker) match(text string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var found []string
	for _, token := range Tokenize(Normalize(text)) {
		if _, ok := c.words[token]; ok {
			found = append(found, token)
		}
	}
	slices.Sort(found)
	return slices.Compact(found)
}

// Normalize decomposes s, drops combining marks and folds case.
func Normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), cases.Fold(), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.TrimSpace(out)
}

// Tokenize splits s on every rune that is not a letter or digit.
func Tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
