// Package model defines domain data structures shared across the service:
// download tasks, their status enum, requested formats and media previews.
// Task values are plain snapshots; mutation is owned by the registry.
package model
