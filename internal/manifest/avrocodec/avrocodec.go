// Package avrocodec is the default implementation of the pluggable
// manifest/manifest-list encoder the metadata tree treats as an external
// collaborator (spec §1). Callers that need a different on-wire format can
// implement the Encoder/Decoder interfaces themselves; nothing elsewhere in
// this module depends on hamba/avro directly.
package avrocodec

import (
	"github.com/hamba/avro/v2"
	"github.com/marmotdata/icemeta/internal/metadata"
)

// Encoder serializes manifest entries or manifest-list entries to bytes.
type Encoder interface {
	EncodeManifest(entries []metadata.ManifestEntry) ([]byte, error)
	EncodeManifestList(manifests []metadata.ManifestFile) ([]byte, error)
}

// Decoder reverses Encoder.
type Decoder interface {
	DecodeManifest(b []byte) ([]metadata.ManifestEntry, error)
	DecodeManifestList(b []byte) ([]metadata.ManifestFile, error)
}

// manifestEntryRecord and manifestFileRecord are the avro-tagged wire
// shapes; metadata.ManifestEntry/ManifestFile stay codec-agnostic.
type manifestEntryRecord struct {
	Status             int                `avro:"status"`
	SnapshotID         int64              `avro:"snapshot_id"`
	SequenceNumber     int64              `avro:"sequence_number"`
	FileSequenceNumber int64              `avro:"file_sequence_number"`
	FilePath           string             `avro:"file_path"`
	FileFormat         string             `avro:"file_format"`
	Content            int                `avro:"content"`
	RecordCount        int64              `avro:"record_count"`
	FileSizeInBytes    int64              `avro:"file_size_in_bytes"`
	EqualityIDs        []int              `avro:"equality_ids"`
	ContentOffset      *int64             `avro:"content_offset"`
	ContentSize        *int64             `avro:"content_size"`
	ReferencedDataFile string             `avro:"referenced_data_file"`
}

type manifestFileRecord struct {
	ManifestPath       string `avro:"manifest_path"`
	ManifestLength     int64  `avro:"manifest_length"`
	PartitionSpecID    int    `avro:"partition_spec_id"`
	Content            int    `avro:"content"`
	SequenceNumber     int64  `avro:"sequence_number"`
	MinSequenceNumber  int64  `avro:"min_sequence_number"`
	AddedSnapshotID    int64  `avro:"added_snapshot_id"`
	AddedFilesCount    int    `avro:"added_files_count"`
	ExistingFilesCount int    `avro:"existing_files_count"`
	DeletedFilesCount  int    `avro:"deleted_files_count"`
	AddedRowsCount     int64  `avro:"added_rows_count"`
	ExistingRowsCount  int64  `avro:"existing_rows_count"`
	DeletedRowsCount   int64  `avro:"deleted_rows_count"`
}

var manifestEntryArraySchema = avro.MustParse(`{
	"type": "array", "items": {
		"type": "record", "name": "manifest_entry", "fields": [
			{"name": "status", "type": "int"},
			{"name": "snapshot_id", "type": "long"},
			{"name": "sequence_number", "type": "long"},
			{"name": "file_sequence_number", "type": "long"},
			{"name": "file_path", "type": "string"},
			{"name": "file_format", "type": "string"},
			{"name": "content", "type": "int"},
			{"name": "record_count", "type": "long"},
			{"name": "file_size_in_bytes", "type": "long"},
			{"name": "equality_ids", "type": {"type": "array", "items": "int"}},
			{"name": "content_offset", "type": ["null", "long"], "default": null},
			{"name": "content_size", "type": ["null", "long"], "default": null},
			{"name": "referenced_data_file", "type": "string", "default": ""}
		]
	}
}`)

var manifestFileArraySchema = avro.MustParse(`{
	"type": "array", "items": {
		"type": "record", "name": "manifest_file", "fields": [
			{"name": "manifest_path", "type": "string"},
			{"name": "manifest_length", "type": "long"},
			{"name": "partition_spec_id", "type": "int"},
			{"name": "content", "type": "int"},
			{"name": "sequence_number", "type": "long"},
			{"name": "min_sequence_number", "type": "long"},
			{"name": "added_snapshot_id", "type": "long"},
			{"name": "added_files_count", "type": "int"},
			{"name": "existing_files_count", "type": "int"},
			{"name": "deleted_files_count", "type": "int"},
			{"name": "added_rows_count", "type": "long"},
			{"name": "existing_rows_count", "type": "long"},
			{"name": "deleted_rows_count", "type": "long"}
		]
	}
}`)

// Codec is the default Encoder/Decoder, backed by hamba/avro.
type Codec struct{}

// New constructs the default avro Codec.
func New() *Codec { return &Codec{} }

func (c *Codec) EncodeManifest(entries []metadata.ManifestEntry) ([]byte, error) {
	records := make([]manifestEntryRecord, len(entries))
	for i, e := range entries {
		records[i] = manifestEntryRecord{
			Status:             int(e.Status),
			SnapshotID:         e.SnapshotID,
			SequenceNumber:     e.SequenceNumber,
			FileSequenceNumber: e.FileSequenceNumber,
			FilePath:           e.DataFile.FilePath,
			FileFormat:         e.DataFile.FileFormat,
			Content:            int(e.DataFile.Content),
			RecordCount:        e.DataFile.RecordCount,
			FileSizeInBytes:    e.DataFile.FileSizeInBytes,
			EqualityIDs:        e.DataFile.EqualityIDs,
			ContentOffset:      e.DataFile.ContentOffset,
			ContentSize:        e.DataFile.ContentSize,
			ReferencedDataFile: e.DataFile.ReferencedDataFile,
		}
	}
	return avro.Marshal(manifestEntryArraySchema, records)
}

func (c *Codec) DecodeManifest(b []byte) ([]metadata.ManifestEntry, error) {
	var records []manifestEntryRecord
	if err := avro.Unmarshal(manifestEntryArraySchema, b, &records); err != nil {
		return nil, err
	}
	entries := make([]metadata.ManifestEntry, len(records))
	for i, r := range records {
		entries[i] = metadata.ManifestEntry{
			Status:             metadata.ManifestEntryStatus(r.Status),
			SnapshotID:         r.SnapshotID,
			SequenceNumber:     r.SequenceNumber,
			FileSequenceNumber: r.FileSequenceNumber,
			DataFile: metadata.DataFile{
				Content:         metadata.FileContent(r.Content),
				FilePath:        r.FilePath,
				FileFormat:      r.FileFormat,
				RecordCount:     r.RecordCount,
				FileSizeInBytes: r.FileSizeInBytes,
				EqualityIDs:     r.EqualityIDs,
				ContentOffset:      r.ContentOffset,
				ContentSize:        r.ContentSize,
				ReferencedDataFile: r.ReferencedDataFile,
			},
		}
	}
	return entries, nil
}

func (c *Codec) EncodeManifestList(manifests []metadata.ManifestFile) ([]byte, error) {
	records := make([]manifestFileRecord, len(manifests))
	for i, m := range manifests {
		records[i] = manifestFileRecord{
			ManifestPath:       m.ManifestPath,
			ManifestLength:     m.ManifestLength,
			PartitionSpecID:    m.PartitionSpecID,
			Content:            int(m.Content),
			SequenceNumber:     m.SequenceNumber,
			MinSequenceNumber:  m.MinSequenceNumber,
			AddedSnapshotID:    m.AddedSnapshotID,
			AddedFilesCount:    m.AddedFilesCount,
			ExistingFilesCount: m.ExistingFilesCount,
			DeletedFilesCount:  m.DeletedFilesCount,
			AddedRowsCount:     m.AddedRowsCount,
			ExistingRowsCount:  m.ExistingRowsCount,
			DeletedRowsCount:   m.DeletedRowsCount,
		}
	}
	return avro.Marshal(manifestFileArraySchema, records)
}

func (c *Codec) DecodeManifestList(b []byte) ([]metadata.ManifestFile, error) {
	var records []manifestFileRecord
	if err := avro.Unmarshal(manifestFileArraySchema, b, &records); err != nil {
		return nil, err
	}
	out := make([]metadata.ManifestFile, len(records))
	for i, r := range records {
		out[i] = metadata.ManifestFile{
			ManifestPath:       r.ManifestPath,
			ManifestLength:     r.ManifestLength,
			PartitionSpecID:    r.PartitionSpecID,
			Content:            metadata.ManifestContent(r.Content),
			SequenceNumber:     r.SequenceNumber,
			MinSequenceNumber:  r.MinSequenceNumber,
			AddedSnapshotID:    r.AddedSnapshotID,
			AddedFilesCount:    r.AddedFilesCount,
			ExistingFilesCount: r.ExistingFilesCount,
			DeletedFilesCount:  r.DeletedFilesCount,
			AddedRowsCount:     r.AddedRowsCount,
			ExistingRowsCount:  r.ExistingRowsCount,
			DeletedRowsCount:   r.DeletedRowsCount,
		}
	}
	return out, nil
}
