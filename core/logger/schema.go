package logger

import "strings"

var allowedLevels = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

var allowedStatus = map[string]string{
	"ok":           "ok",
	"fail":         "fail",
	"skip":         "skip",
	"retry":        "retry",
	"rate_limited": "rate_limited",
	"cancelled":    "cancelled",
}

var allowedCache = map[string]string{
	"hit":     "hit",
	"miss":    "miss",
	"refresh": "refresh",
	"evict":   "evict",
}

var allowedOutcome = map[string]string{
	"ok":             "ok",
	"fail":           "fail",
	"cancelled":      "cancelled",
	"rate_limited":   "rate_limited",
	"rejected":       "rejected",
	"not_applicable": "not_applicable",
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := allowedLevels[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if mapped, ok := allowedStatus[status]; ok {
		return mapped
	}
	return status
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
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"state",
	"expected",
	"cb_key",
	"outcome",
	"duration_ms",
	"messages",
	"edits",
	"kb",
	"method",
	"endpoint",
	"http_code",
	"cache",
	"job_id",
	"page",
	"pages",
	"sent",
	"failed",
	"total",
	"payload",
	"lang",
	"username",
	"mode",
	"listen",
	"public_url",
	"addr",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"error_kind",
	"cause",
	"attempts",
	"backoff_ms",
}
