package cron

import (
	"context"

	"github.com/angelmondragon/pharmacore-backend/pkg/config"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Entry binds a job to the UTC time of day it runs at.
type Entry struct {
	Job Job
	At  config.TimeOfDay
}

// Registry tracks registered cron jobs.
type Registry struct {
	entries []Entry
}

// NewRegistry builds a registry preloaded with the provided entries.
func NewRegistry(entries ...Entry) *Registry {
	registry := &Registry{}
	for _, entry := range entries {
		registry.Register(entry.Job, entry.At)
	}
	return registry
}

// Register adds a job that runs daily at the given time.
func (r *Registry) Register(job Job, at config.TimeOfDay) {
	if job == nil {
		return
	}
	r.entries = append(r.entries, Entry{Job: job, At: at})
}

// Entries returns the registered entries in the order they were added.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	return entries
}
