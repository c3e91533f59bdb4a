// Package logs tails the workspace log file with bounded memory usage.
//
// It backs `specred logs`: LastLines reads the trailing window of a log file
// through a fixed-size ring, and Follow polls from a byte offset so a
// reduction running in another terminal can be watched live. Callers cancel
// the follow loop through the context.
package logs
