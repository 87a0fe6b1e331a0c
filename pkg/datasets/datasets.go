// Package datasets exchanges surrogate training pairs as Parquet files.
// A pair is a solution representation vector and its normalized fitness;
// exported pairs can seed an estimator buffer in a later run or feed
// offline model work outside the search loop.
package datasets

import (
	"context"
	"os"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/memory"
	"github.com/apache/arrow/go/v13/parquet"
	"github.com/apache/arrow/go/v13/parquet/file"
	"github.com/apache/arrow/go/v13/parquet/pqarrow"

	"github.com/evoship/evoship/pkg/errors"
	"github.com/evoship/evoship/pkg/estimator"
)

const (
	representationField = "representation"
	fitnessField        = "fitness"

	writeChunkSize = 1024
)

func pairSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: representationField, Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)},
		{Name: fitnessField, Type: arrow.PrimitiveTypes.Float64},
	}, nil)
}

// WriteTrainingPairs stores (representation, fitness) pairs at path as a
// Parquet file. xs and ys must have equal length.
func WriteTrainingPairs(path string, xs [][]float64, ys []float64) error {
	if len(xs) != len(ys) {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "training inputs and targets differ in length"),
			errors.Fields{"inputs": len(xs), "targets": len(ys)})
	}

	schema := pairSchema()
	rb := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer rb.Release()

	repBuilder := rb.Field(0).(*array.ListBuilder)
	valBuilder := repBuilder.ValueBuilder().(*array.Float64Builder)
	fitBuilder := rb.Field(1).(*array.Float64Builder)

	for i, x := range xs {
		repBuilder.Append(true)
		valBuilder.AppendValues(x, nil)
		fitBuilder.Append(ys[i])
	}

	rec := rb.NewRecord()
	defer rec.Release()
	table := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer table.Release()

	out, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to create training pair file")
	}
	defer out.Close()

	if err := pqarrow.WriteTable(table, out, writeChunkSize,
		parquet.NewWriterProperties(), pqarrow.DefaultWriterProps()); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to write training pairs")
	}
	return nil
}

// ReadTrainingPairs loads pairs written by WriteTrainingPairs. Rows with a
// null representation are skipped.
func ReadTrainingPairs(ctx context.Context, path string) (xs [][]float64, ys []float64, err error) {
	reader, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ResourceNotFound, "failed to open training pair file")
	}
	defer reader.Close()

	arrowReader, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.Unknown, "failed to read training pair file")
	}

	schema, err := arrowReader.Schema()
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.Unknown, "failed to read training pair schema")
	}
	repIndices := schema.FieldIndices(representationField)
	fitIndices := schema.FieldIndices(fitnessField)
	if len(repIndices) == 0 || len(fitIndices) == 0 {
		return nil, nil, errors.WithFields(
			errors.New(errors.ValidationFailed, "file is not a training pair export"),
			errors.Fields{"path": path})
	}

	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.Unknown, "failed to read training pair table")
	}
	defer table.Release()

	repCol := table.Column(repIndices[0])
	fitCol := table.Column(fitIndices[0])

	xs = make([][]float64, 0, table.NumRows())
	ys = make([]float64, 0, table.NumRows())
	for c := 0; c < repCol.Data().Len(); c++ {
		repChunk, ok := repCol.Data().Chunk(c).(*array.List)
		if !ok {
			return nil, nil, errors.New(errors.ValidationFailed, "representation column is not a float list")
		}
		fitChunk, ok := fitCol.Data().Chunk(c).(*array.Float64)
		if !ok {
			return nil, nil, errors.New(errors.ValidationFailed, "fitness column is not float64")
		}
		values := repChunk.ListValues().(*array.Float64)
		for i := 0; i < repChunk.Len(); i++ {
			if repChunk.IsNull(i) {
				continue
			}
			start, end := repChunk.ValueOffsets(i)
			rep := make([]float64, 0, end-start)
			for j := start; j < end; j++ {
				rep = append(rep, values.Value(int(j)))
			}
			xs = append(xs, rep)
			ys = append(ys, fitChunk.Value(i))
		}
	}
	return xs, ys, nil
}

// ExportBuffer writes the current contents of a training buffer to path.
func ExportBuffer(path string, buf *estimator.Buffer) error {
	xs, ys, err := buf.Get()
	if err != nil {
		return err
	}
	return WriteTrainingPairs(path, xs, ys)
}

// ImportBuffer inserts pairs from path into the buffer and reports how
// many rows were read. Duplicate inputs merge under the buffer's rules.
func ImportBuffer(ctx context.Context, path string, buf *estimator.Buffer) (int, error) {
	xs, ys, err := ReadTrainingPairs(ctx, path)
	if err != nil {
		return 0, err
	}
	for i, x := range xs {
		buf.Insert(x, ys[i])
	}
	return len(xs), nil
}
