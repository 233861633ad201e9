// Package course defines course and block identity.
//
// Course keys render as course-v1:<org>+<course>+<run> and block usage keys
// as block-v1:<org>+<course>+<run>+type@<type>+block@<id>.
package course

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	coursePrefix = "course-v1:"
	blockPrefix  = "block-v1:"

	// CategoryCourse is the root block type of every course.
	CategoryCourse = "course"
	// CategoryDiscussion is the inline discussion block type.
	CategoryDiscussion = "discussion"
	// RootBlockID is the block id of the course root.
	RootBlockID = "course"
)

var keyPart = regexp.MustCompile(`^[\w\-~.:]+$`)

// InvalidKeyError reports a key string that could not be parsed.
type InvalidKeyError struct {
	Input  string
	Reason string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid key %q: %s", e.Input, e.Reason)
}

// CourseKey identifies a course run.
type CourseKey struct {
	Org    string
	Course string
	Run    string
}

// NewCourseKey validates and builds a course key.
func NewCourseKey(org, course, run string) (CourseKey, error) {
	k := CourseKey{Org: org, Course: course, Run: run}
	for _, part := range []string{org, course, run} {
		if !keyPart.MatchString(part) || strings.Contains(part, ":") {
			return CourseKey{}, &InvalidKeyError{Input: k.String(), Reason: fmt.Sprintf("bad component %q", part)}
		}
	}
	return k, nil
}

// ParseCourseKey parses course-v1:org+course+run.
func ParseCourseKey(s string) (CourseKey, error) {
	rest, ok := strings.CutPrefix(s, coursePrefix)
	if !ok {
		return CourseKey{}, &InvalidKeyError{Input: s, Reason: "missing " + coursePrefix + " prefix"}
	}
	parts := strings.Split(rest, "+")
	if len(parts) != 3 {
		return CourseKey{}, &InvalidKeyError{Input: s, Reason: "expected org+course+run"}
	}
	k, err := NewCourseKey(parts[0], parts[1], parts[2])
	if err != nil {
		return CourseKey{}, &InvalidKeyError{Input: s, Reason: err.(*InvalidKeyError).Reason}
	}
	return k, nil
}

func (k CourseKey) String() string {
	return coursePrefix + k.Org + "+" + k.Course + "+" + k.Run
}

// IsZero reports whether k is unset.
func (k CourseKey) IsZero() bool {
	return k == CourseKey{}
}

// MakeUsageKey builds the usage key of a block in this course.
func (k CourseKey) MakeUsageKey(blockType, blockID string) UsageKey {
	return UsageKey{Course: k, BlockType: blockType, BlockID: blockID}
}

// RootUsageKey is the usage key of the course root block.
func (k CourseKey) RootUsageKey() UsageKey {
	return k.MakeUsageKey(CategoryCourse, RootBlockID)
}

// UsageKey identifies one block within a course.
type UsageKey struct {
	Course    CourseKey
	BlockType string
	BlockID   string
}

// NewUsageKey validates and builds the usage key of a block in k.
func NewUsageKey(k CourseKey, blockType, blockID string) (UsageKey, error) {
	u := k.MakeUsageKey(blockType, blockID)
	if !keyPart.MatchString(blockType) {
		return UsageKey{}, &InvalidKeyError{Input: u.String(), Reason: "bad block type"}
	}
	if !keyPart.MatchString(blockID) {
		return UsageKey{}, &InvalidKeyError{Input: u.String(), Reason: "bad block id"}
	}
	return u, nil
}

// ParseUsageKey parses block-v1:org+course+run+type@<type>+block@<id>.
func ParseUsageKey(s string) (UsageKey, error) {
	rest, ok := strings.CutPrefix(s, blockPrefix)
	if !ok {
		return UsageKey{}, &InvalidKeyError{Input: s, Reason: "missing " + blockPrefix + " prefix"}
	}
	parts := strings.Split(rest, "+")
	if len(parts) != 5 {
		return UsageKey{}, &InvalidKeyError{Input: s, Reason: "expected org+course+run+type@..+block@.."}
	}
	blockType, ok := strings.CutPrefix(parts[3], "type@")
	if !ok || !keyPart.MatchString(blockType) {
		return UsageKey{}, &InvalidKeyError{Input: s, Reason: "bad block type"}
	}
	blockID, ok := strings.CutPrefix(parts[4], "block@")
	if !ok || !keyPart.MatchString(blockID) {
		return UsageKey{}, &InvalidKeyError{Input: s, Reason: "bad block id"}
	}
	k, err := NewCourseKey(parts[0], parts[1], parts[2])
	if err != nil {
		return UsageKey{}, &InvalidKeyError{Input: s, Reason: err.(*InvalidKeyError).Reason}
	}
	return UsageKey{Course: k, BlockType: blockType, BlockID: blockID}, nil
}

func (u UsageKey) String() string {
	return blockPrefix + u.Course.Org + "+" + u.Course.Course + "+" + u.Course.Run +
		"+type@" + u.BlockType + "+block@" + u.BlockID
}
