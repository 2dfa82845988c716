// Package ingestion provides pipeline orchestration for turning uploaded
// files into searchable chunks.
//
// The Pipeline type manages the ingestion workflow for documents, including:
//   - Validating upload batches (size, count, file type, filename safety)
//   - Storing raw file content and creating document records
//   - Extracting text, chunking and embedding asynchronously
//   - Tracking per-document progress and processing status
//
// Documents in a batch are processed concurrently on a worker pool. Errors
// during async processing are recorded on the document record (status
// failed, user-facing message) and do not fail the ingestion call.
package ingestion
