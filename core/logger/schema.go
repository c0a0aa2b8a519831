package logger

import "strings"

const (
	// LevelDebug represents the debug severity level name.
	LevelDebug = "DEBUG"
	// LevelInfo represents the info severity level name.
	LevelInfo = "INFO"
	// LevelWarn represents the warning severity level name.
	LevelWarn = "WARN"
	// LevelError represents the error severity level name.
	LevelError = "ERROR"
)

var allowedLevels = map[string]string{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

var allowedStatus = map[string]struct{}{
	"ok":           {},
	"fail":         {},
	"skip":         {},
	"retry":        {},
	"rate_limited": {},
	"cancelled":    {},
}

// allowedOutcome mirrors the dialogue outcomes plus generic handler results.
var allowedOutcome = map[string]struct{}{
	"ok":             {},
	"fail":           {},
	"timeout":        {},
	"reset":          {},
	"topic":          {},
	"suggestion":     {},
	"shortcut":       {},
	"option":         {},
	"menu":           {},
	"not_understood": {},
}

var allowedCache = map[string]struct{}{
	"hit":  {},
	"miss": {},
}

func normalizeLevel(level string) string {
	if level == "" {
		return LevelInfo
	}
	if mapped, ok := allowedLevels[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeEnum(allowed map[string]struct{}, v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", false
	}
	_, ok := allowed[v]
	return v, ok
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"channel",
	"user_id",
	"handler",
	"method",
	"path",
	"http_code",
	"state_from",
	"state_to",
	"outcome",
	"topic",
	"match_kind",
	"score",
	"keyword",
	"duration_ms",
	"cache",
	"bytes",
	"payload",
	"mode",
	"listen",
	"public_url",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"cause",
	"attempts",
	"backoff_ms",
}
