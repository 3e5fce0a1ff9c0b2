package ldap

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
	"go.uber.org/zap"
)

// Logger interface for LDAP operations.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
	Trace(msg string, fields map[string]any)
}

// TFLogger wraps tflog for use in LDAP package.
type TFLogger struct {
	ctx       context.Context
	subsystem string
}

// NewTFLogger creates a new logger for LDAP operations.
func NewTFLogger(ctx context.Context, subsystem string) *TFLogger {
	return &TFLogger{
		ctx:       ctx,
		subsystem: subsystem,
	}
}

func (l *TFLogger) Debug(msg string, fields map[string]any) {
	tflog.SubsystemDebug(l.ctx, l.subsystem, msg, fields)
}

func (l *TFLogger) Info(msg string, fields map[string]any) {
	tflog.SubsystemInfo(l.ctx, l.subsystem, msg, fields)
}

func (l *TFLogger) Warn(msg string, fields map[string]any) {
	tflog.SubsystemWarn(l.ctx, l.subsystem, msg, fields)
}

func (l *TFLogger) Error(msg string, fields map[string]any) {
	tflog.SubsystemError(l.ctx, l.subsystem, msg, fields)
}

func (l *TFLogger) Trace(msg string, fields map[string]any) {
	tflog.SubsystemTrace(l.ctx, l.subsystem, msg, fields)
}

// ZapLogger adapts a zap logger for use outside Terraform.
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger creates a Logger backed by zap. A nil logger yields a no-op logger.
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger}
}

func (l *ZapLogger) Debug(msg string, fields map[string]any) {
	l.logger.Debug(msg, zapFields(fields)...)
}

func (l *ZapLogger) Info(msg string, fields map[string]any) {
	l.logger.Info(msg, zapFields(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields map[string]any) {
	l.logger.Warn(msg, zapFields(fields)...)
}

func (l *ZapLogger) Error(msg string, fields map[string]any) {
	l.logger.Error(msg, zapFields(fields)...)
}

// Trace maps to debug; zap has no trace level.
func (l *ZapLogger) Trace(msg string, fields map[string]any) {
	l.logger.Debug(msg, zapFields(fields)...)
}

func zapFields(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, map[string]any) {}
func (NopLogger) Info(string, map[string]any)  {}
func (NopLogger) Warn(string, map[string]any)  {}
func (NopLogger) Error(string, map[string]any) {}
func (NopLogger) Trace(string, map[string]any) {}

// LogPerformance logs how long a session step took.
func LogPerformance(logger Logger, operation string, duration time.Duration, fields map[string]any) {
	if fields == nil {
		fields = make(map[string]any)
	}

	fields["operation"] = operation
	fields["duration_ms"] = duration.Milliseconds()

	// Log performance warnings for slow operations
	if duration > 5*time.Second {
		logger.Warn("Slow operation detected", fields)
	} else if duration > 1*time.Second {
		logger.Info("Operation performance", fields)
	} else {
		logger.Debug("Operation performance", fields)
	}
}

// LogLDAPError logs LDAP-specific error information.
func LogLDAPError(logger Logger, operation string, err error, fields map[string]any) {
	if fields == nil {
		fields = make(map[string]any)
	}

	fields["operation"] = operation
	fields["error"] = err.Error()

	var sessionErr *SessionError
	if errors.As(err, &sessionErr) {
		fields["error_kind"] = string(sessionErr.Kind)
		fields["error_category"] = string(sessionErr.Category)
	}

	// Add LDAP-specific error information if available
	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		fields["ldap_result_code"] = ldapErr.ResultCode
		if ldapErr.MatchedDN != "" {
			fields["ldap_matched_dn"] = ldapErr.MatchedDN
		}
		if ldapErr.Err != nil {
			fields["ldap_diagnostic_message"] = ldapErr.Err.Error()
		}
	}

	logger.Error("LDAP operation failed", fields)
}

// LogConnectionEvent logs connection-related events.
func LogConnectionEvent(logger Logger, event string, fields map[string]any) {
	if fields == nil {
		fields = make(map[string]any)
	}

	fields["event"] = event

	switch event {
	case "connection_established", "authentication_success":
		logger.Info("Connection event", fields)
	case "connection_failed", "authentication_failed":
		logger.Error("Connection event", fields)
	case "connection_attempt", "authentication_attempt", "connection_closed":
		logger.Debug("Connection event", fields)
	default:
		logger.Trace("Connection event", fields)
	}
}

// SanitizeFields removes sensitive information from log fields.
func SanitizeFields(fields map[string]any) map[string]any {
	sanitized := make(map[string]any)

	sensitiveKeys := map[string]bool{
		"password":      true,
		"passwd":        true,
		"bindpwd":       true,
		"bind_password": true,
		"secret":        true,
		"token":         true,
		"key":           true,
		"credential":    true,
		"credentials":   true,
	}

	for k, v := range fields {
		if sensitiveKeys[strings.ToLower(k)] {
			sanitized[k] = "[REDACTED]"
			continue
		}
		// Search filters such as (userPassword=*) are logged verbatim.
		if str, ok := v.(string); ok && !isFilterKey(k) && containsSensitivePattern(str) {
			sanitized[k] = "[REDACTED]"
			continue
		}
		sanitized[k] = v
	}

	return sanitized
}

func isFilterKey(k string) bool {
	return strings.EqualFold(k, "filter")
}

// containsSensitivePattern checks if a string contains patterns that might be sensitive.
func containsSensitivePattern(s string) bool {
	patterns := []string{
		"password=",
		"passwd=",
		"bindpwd=",
		"secret=",
		"token=",
	}

	lower := strings.ToLower(s)
	for _, pattern := range patterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}

	return false
}

// LogDataSourceOperation provides standardized entry/exit logging for Terraform data source operations.
func LogDataSourceOperation(ctx context.Context, dataSource, operation string, fields map[string]any) func(error) {
	start := time.Now()

	if fields == nil {
		fields = make(map[string]any)
	}

	entryFields := make(map[string]any)
	maps.Copy(entryFields, fields)
	entryFields["data_source"] = dataSource
	entryFields["operation"] = operation

	tflog.SubsystemDebug(ctx, "provider", "Starting data source operation", entryFields)

	return func(err error) {
		exitFields := make(map[string]any)
		maps.Copy(exitFields, fields)
		exitFields["data_source"] = dataSource
		exitFields["operation"] = operation
		exitFields["duration_ms"] = time.Since(start).Milliseconds()
		exitFields["has_error"] = err != nil

		if err != nil {
			exitFields["error"] = err.Error()
			tflog.SubsystemError(ctx, "provider", "Data source operation failed", exitFields)
		} else {
			tflog.SubsystemDebug(ctx, "provider", "Data source operation completed", exitFields)
		}
	}
}
