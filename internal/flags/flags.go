// Package flags provides feature flags with per-course overrides.
//
// Evaluation order for a course flag: a scoped override set with Override,
// then the course's own value, then the global value. Unknown flags are off.
// Registries can be reloaded in place when the config file changes.
package flags

import (
	"maps"
	"sync"

	"github.com/zjrosen/discussions/internal/log"
)

// Flag name constants for type-safe flag access.
const (
	// FlagProfanityChecker gates profanity checks on thread and comment
	// create/edit signals.
	FlagProfanityChecker = "enable-profanity-checker"
)

// Registry holds feature flag state loaded from configuration.
type Registry struct {
	mu        sync.RWMutex
	flags     map[string]bool
	courses   map[string]map[string]bool
	overrides map[string]bool
}

// New creates a Registry from a config map.
// If flags is nil, an empty registry is created (all flags disabled).
func New(flags map[string]bool) *Registry {
	r := &Registry{overrides: make(map[string]bool)}
	r.Reload(flags, nil)
	return r
}

// Reload replaces global and per-course values. Overrides survive a reload.
func (r *Registry) Reload(flags map[string]bool, courses map[string]map[string]bool) {
	global := make(map[string]bool, len(flags))
	maps.Copy(global, flags)
	perCourse := make(map[string]map[string]bool, len(courses))
	for courseID, values := range courses {
		copied := make(map[string]bool, len(values))
		maps.Copy(copied, values)
		perCourse[courseID] = copied
	}

	r.mu.Lock()
	r.flags = global
	r.courses = perCourse
	r.mu.Unlock()

	log.Debug(log.CatFlags, "Feature flags loaded", "count", len(global), "courses", len(perCourse))
}

// Enabled returns true if the named flag is enabled globally.
// Returns false for unknown flags and on a nil registry.
func (r *Registry) Enabled(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if value, ok := r.overrides[name]; ok {
		return value
	}
	value, exists := r.flags[name]
	if !exists {
		log.Debug(log.CatFlags, "Unknown flag accessed", "flag", name, "result", false)
		return false
	}
	return value
}

// EnabledForCourse evaluates name for courseID.
func (r *Registry) EnabledForCourse(name, courseID string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	if value, ok := r.overrides[name]; ok {
		r.mu.RUnlock()
		return value
	}
	if values, ok := r.courses[courseID]; ok {
		if value, ok := values[name]; ok {
			r.mu.RUnlock()
			log.Debug(log.CatFlags, "Course flag override", "flag", name, "course_id", courseID, "result", value)
			return value
		}
	}
	r.mu.RUnlock()
	return r.Enabled(name)
}

// Override forces name to active regardless of course until the returned
// restore func runs. Restore puts back any override that was in place.
func (r *Registry) Override(name string, active bool) (restore func()) {
	r.mu.Lock()
	prev, hadPrev := r.overrides[name]
	r.overrides[name] = active
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if hadPrev {
			r.overrides[name] = prev
		} else {
			delete(r.overrides, name)
		}
	}
}

// All returns a copy of the global flags with overrides applied.
func (r *Registry) All() map[string]bool {
	if r == nil {
		return make(map[string]bool)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]bool, len(r.flags)+len(r.overrides))
	maps.Copy(result, r.flags)
	maps.Copy(result, r.overrides)
	return result
}

// Courses returns a copy of the per-course values.
func (r *Registry) Courses() map[string]map[string]bool {
	if r == nil {
		return make(map[string]map[string]bool)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]map[string]bool, len(r.courses))
	for courseID, values := range r.courses {
		result[courseID] = maps.Clone(values)
	}
	return result
}

// CourseFlag is a flag evaluated per course.
type CourseFlag struct {
	registry *Registry
	name     string
}

// CourseFlag binds name to r.
func (r *Registry) CourseFlag(name string) CourseFlag {
	return CourseFlag{registry: r, name: name}
}

// Name returns the flag name.
func (f CourseFlag) Name() string { return f.name }

// IsEnabled evaluates the flag for courseID.
func (f CourseFlag) IsEnabled(courseID string) bool {
	return f.registry.EnabledForCourse(f.name, courseID)
}
