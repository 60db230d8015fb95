// Package logging provides asgen's structured, file-based logging with
// rotation. The CLI always writes logs to ~/.cache/asgen/logs/run.log and
// duplicates them to stderr.
//
// By default the level is info; --debug lowers it to debug.
package logging
