// Package model defines the core data structures used throughout ulcare.
//
// This package contains the following main types:
//   - Severity: The five ordered ulcer severity classes
//   - Guidance: Static clinical detail and action text per severity
//   - Scores: Raw classifier output and its resolution to a Severity
//   - Identity: The patient name and gender entered once
//   - Classification: One request and its result, handed to report writers
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The preprocess, inference, pipeline and report packages all
// use these types, so centralizing them prevents import cycles.
package model
