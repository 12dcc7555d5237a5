package audit

import (
	"errors"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
)

// DefaultBatchSize is the number of diff rows buffered per record batch
const DefaultBatchSize = 1024

// ParquetWriter exports diff rows, one per element tag
type ParquetWriter struct {
	file      *os.File
	writer    *pqarrow.FileWriter
	builder   *array.RecordBuilder
	batchSize int
	count     int
	rows      int64
}

// DiffSchema is the column layout of the audit export
var DiffSchema = arrow.NewSchema([]arrow.Field{
	{Name: "element", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "key", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "status", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "new_value", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "old_value", Type: arrow.BinaryTypes.String, Nullable: false},
}, nil)

// NewParquetWriter creates the audit file at path
func NewParquetWriter(path string, batchSize int) (*ParquetWriter, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create audit file: %w", err)
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Zstd),
		parquet.WithDictionaryDefault(true),
	)

	writer, err := pqarrow.NewFileWriter(DiffSchema, f, writerProps, pqarrow.DefaultWriterProps())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}

	return &ParquetWriter{
		file:      f,
		writer:    writer,
		builder:   array.NewRecordBuilder(memory.DefaultAllocator, DiffSchema),
		batchSize: batchSize,
	}, nil
}

// Write appends the diff of one element
func (w *ParquetWriter) Write(ref string, lines []DiffLine) error {
	for _, l := range lines {
		w.builder.Field(0).(*array.StringBuilder).Append(ref)
		w.builder.Field(1).(*array.StringBuilder).Append(l.Key)
		w.builder.Field(2).(*array.StringBuilder).Append(l.Status.String())
		w.builder.Field(3).(*array.StringBuilder).Append(l.New)
		w.builder.Field(4).(*array.StringBuilder).Append(l.Old)

		w.count++
		w.rows++
		if w.count >= w.batchSize {
			if err := w.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Rows returns the number of rows written so far
func (w *ParquetWriter) Rows() int64 {
	return w.rows
}

func (w *ParquetWriter) flush() error {
	if w.count == 0 {
		return nil
	}
	rec := w.builder.NewRecord()
	defer rec.Release()
	err := w.writer.Write(rec)
	w.count = 0
	return err
}

// Close flushes pending rows and closes the file
func (w *ParquetWriter) Close() error {
	defer w.builder.Release()
	if err := w.flush(); err != nil {
		w.writer.Close()
		return err
	}
	if err := w.writer.Close(); err != nil {
		return err
	}
	if err := w.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}
