package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeys contains attribute keys that are always masked.
var sensitiveKeys = map[string]bool{
	// Identity record
	"patient":        true,
	"patient_name":   true,
	"patient_gender": true,
	"name":           true,
	"gender":         true,
	"identity":       true,

	// Photo location
	"gps":       true,
	"location":  true,
	"latitude":  true,
	"longitude": true,
	"lat":       true,
	"lon":       true,

	// Contact details
	"email": true,
	"phone": true,
}

// sensitiveKeywords mask any key containing them.
// "name" is not a keyword: "step_name" or "file_name" carry no patient data.
var sensitiveKeywords = []string{
	"patient", "gps", "latitude", "longitude", "address", "phone", "email",
}

// sensitivePatterns match values that are masked regardless of key.
var sensitivePatterns = []*regexp.Regexp{
	// Decimal coordinate pair, e.g. "-6.2088, 106.8456"
	regexp.MustCompile(`^-?\d{1,2}\.\d{3,}\s*,\s*-?\d{1,3}\.\d{3,}$`),

	// EXIF degrees/minutes/seconds rationals, e.g. "[6/1 12/1 3456/100]"
	regexp.MustCompile(`^\[\d+/\d+ \d+/\d+ \d+/\d+\]$`),

	// E-mail address
	regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[A-Za-z]{2,}$`),

	// Phone number in international or Indonesian local form
	regexp.MustCompile(`^(\+62|62|0)8\d{7,11}$`),
}

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// SecureHandler wraps an slog.Handler and masks patient data before the
// record reaches the wrapped handler.
//
// Design decision: A handler wrapper rather than a custom logger. Every
// package keeps using plain *slog.Logger, and the masking works the same
// for text and JSON output.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler creates a new SecureHandler wrapping the given handler.
// If handler is nil, slog.Default().Handler() is used.
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and passes it on.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(maskAttr(a))
		return true
	})
	return h.handler.Handle(ctx, masked)
}

// WithAttrs returns a new handler with the given attributes masked and added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = maskAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(masked)}
}

// WithGroup returns a new handler with the given group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

// maskAttr masks a single attribute. A sensitive group key masks the whole
// group; otherwise group members are checked one by one.
func maskAttr(a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	if isSensitiveKey(key) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		masked := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			masked[i] = maskAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	case slog.KindString:
		if isSensitiveValue(a.Value.String()) {
			return slog.String(a.Key, MaskValue)
		}
	case slog.KindLogValuer:
		return maskAttr(slog.Attr{Key: a.Key, Value: a.Value.Resolve()})
	}
	return a
}

// isSensitiveKey reports whether a lower-cased key names patient data.
func isSensitiveKey(key string) bool {
	if sensitiveKeys[key] {
		return true
	}
	return containsSensitiveKeyword(key)
}

// containsSensitiveKeyword checks if the key contains a sensitive keyword.
func containsSensitiveKeyword(key string) bool {
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isSensitiveValue checks if a value matches a sensitive pattern.
func isSensitiveValue(value string) bool {
	value = strings.TrimSpace(value)
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// Option configures NewSecureLogger.
type Option func(*loggerOptions)

type loggerOptions struct {
	json   bool
	source bool
}

// WithJSON makes the logger emit JSON instead of logfmt text.
func WithJSON() Option {
	return func(o *loggerOptions) {
		o.json = true
	}
}

// WithSource adds the calling file and line to every record.
func WithSource() Option {
	return func(o *loggerOptions) {
		o.source = true
	}
}

// NewSecureLogger creates a *slog.Logger that masks patient data.
// verbose selects Debug level; otherwise only warnings and errors are
// written.
func NewSecureLogger(w io.Writer, verbose bool, opts ...Option) *slog.Logger {
	var o loggerOptions
	for _, opt := range opts {
		opt(&o)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: o.source,
	}

	var handler slog.Handler
	if o.json {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(NewSecureHandler(handler))
}
