// Package platform contains filesystem glue around the extraction
// collaborator: download directory setup, output file resolution and
// credential file detection.
package platform
