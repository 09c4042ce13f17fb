// Package download runs extraction jobs in the background. Each submission
// gets a task record in the registry and a goroutine that waits for one of
// a bounded number of slots, calls the extractor, feeds its progress into
// the registry and resolves the produced file.
package download
