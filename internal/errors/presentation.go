package errors

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
)

// UserMessage returns a user-friendly error message
func UserMessage(err error) string {
	if cErr, ok := err.(*CheckError); ok {
		return formatUserError(cErr)
	}
	return err.Error()
}

// formatUserError creates user-friendly error messages based on error type
func formatUserError(cErr *CheckError) string {
	switch cErr.Type {
	case ErrorTypeSpecMismatch:
		return formatMismatchError(cErr)
	case ErrorTypeTransport:
		return formatTransportError(cErr)
	case ErrorTypeConfig:
		return formatConfigError(cErr)
	case ErrorTypeViolation:
		return formatViolationError(cErr)
	default:
		return cErr.Error()
	}
}

func formatMismatchError(cErr *CheckError) string {
	msg := cErr.Message
	if field, ok := cErr.Context["field"]; ok {
		msg = fmt.Sprintf("Parameter mismatch at %s: %s", field, msg)
	}
	return msg
}

func formatTransportError(cErr *CheckError) string {
	msg := cErr.Error()
	if url, ok := cErr.Context["url"]; ok {
		msg = fmt.Sprintf("Transport error accessing %s: %s", url, msg)
	}
	return msg
}

func formatConfigError(cErr *CheckError) string {
	msg := cErr.Error()
	if configType, ok := cErr.Context["config_type"]; ok {
		msg = fmt.Sprintf("Configuration error (%s): %s", configType, msg)
	}
	return msg
}

func formatViolationError(cErr *CheckError) string {
	violations, ok := cErr.Context["violations"].([]string)
	if !ok || len(violations) == 0 {
		return cErr.Message
	}
	msg := cErr.Message
	for _, v := range violations {
		msg += "\n  - " + v
	}
	return msg
}

// PresentError displays an error to the user through centralized zerolog system
func PresentError(err error) {
	if err == nil {
		return
	}

	if cErr, ok := err.(*CheckError); ok {
		event := log.Error().Str("error_type", string(cErr.Type))

		// Stable field order keeps log output diffable between runs
		keys := make([]string, 0, len(cErr.Context))
		for key := range cErr.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			event = event.Interface(key, cErr.Context[key])
		}
		if cErr.Cause != nil {
			event = event.Err(cErr.Cause)
		}

		event.Msg(cErr.Message)
	} else {
		log.Error().Err(err).Msg("")
	}
}

// DebugInfo returns detailed error information for debugging
func DebugInfo(err error) map[string]interface{} {
	info := map[string]interface{}{
		"error":   err.Error(),
		"type":    "unknown",
		"context": map[string]interface{}{},
	}

	if cErr, ok := err.(*CheckError); ok {
		info["type"] = string(cErr.Type)
		info["message"] = cErr.Message
		info["context"] = cErr.Context

		if cErr.Cause != nil {
			info["cause"] = cErr.Cause.Error()
		}
	}

	return info
}
