// Package logging builds the application's slog loggers.
//
// Loggers are created from config (level, format, log directory) and write
// to stderr plus an optional workspace log file. The console format prints
// one record per line with a component prefix and key=value attributes; the
// JSON format is intended for log collectors. Context helpers carry the
// reduction run id and detector index so per-detector log lines stay
// attributable without threading loggers through every call.
package logging
