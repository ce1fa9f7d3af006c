// Package log provides slog handlers that keep patient data out of logs.
//
// The SecureHandler wraps any slog.Handler and masks attributes that would
// identify the person in a photo: their name and gender, the stored identity
// record, and location data recovered from photo metadata. Values that look
// like coordinates, e-mail addresses or phone numbers are masked whatever
// their key.
//
// Masking also applies in verbose mode, since debug output is the log most
// likely to be pasted into a bug report.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("classified", "image", "foot.jpg", "patient_name", "Budi")
//	// patient_name=***REDACTED***
//
//	jsonLogger := log.NewSecureLogger(os.Stderr, verbose, log.WithJSON())
package log
