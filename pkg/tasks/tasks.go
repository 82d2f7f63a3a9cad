// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// DocumentProcessingTask represents the data structure for a document ingestion job.
type DocumentProcessingTask struct {
	DocumentID uint `json:"document_id"`
}
