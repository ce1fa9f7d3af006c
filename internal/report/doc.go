// Package report renders classification results.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: GitHub-flavored Markdown for sharing with a clinician
//
// Design decision: Report writing is kept apart from the result type
// (model.Classification) so new formats need no change to the pipeline.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
