package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldMode is the structured log field key for the active matching mode.
	FieldMode = "matching_mode"
	// FieldPreferencesHash is the structured log field key for the customization cache key.
	FieldPreferencesHash = "preferences_hash"
	// FieldRequestID is the structured log field key for the X-Request-ID of an API call.
	FieldRequestID = "request_id"
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches the provided fields to the logger, defaulting to a no-op
// logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	logger = OrNop(logger)

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// MatchingFields describes a matching call: its mode and, for customized
// matching, the preferences hash it is cached under.
func MatchingFields(mode, preferencesHash string) []zap.Field {
	return StringFields(
		StringField{Key: FieldMode, Value: mode},
		StringField{Key: FieldPreferencesHash, Value: preferencesHash},
	)
}

// AIFields returns the fields that describe the AI provider and model.
func AIFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}
