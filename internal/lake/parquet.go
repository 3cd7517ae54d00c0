package lake

import (
	"context"
	"io"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/rotisserie/eris"
)

// WriteParquet writes one record as a snappy-compressed parquet file. A
// zero-row record still produces a readable file carrying the schema.
func WriteParquet(path string, rec arrow.Record) error {
	return WriteAtomic(path, func(w io.Writer) error {
		return eris.Wrapf(EncodeParquet(w, rec), "lake: parquet %s", filepath.Base(path))
	})
}

// EncodeParquet writes rec to w as a snappy-compressed parquet file.
func EncodeParquet(w io.Writer, rec arrow.Record) error {
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	fw, err := pqarrow.NewFileWriter(rec.Schema(), w, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return eris.Wrap(err, "lake: parquet writer")
	}
	if rec.NumRows() > 0 {
		if err := fw.Write(rec); err != nil {
			fw.Close() //nolint:errcheck
			return eris.Wrap(err, "lake: write parquet")
		}
	}
	return eris.Wrap(fw.Close(), "lake: close parquet")
}

// ReadParquet streams every record batch of a parquet file to fn. The
// record is only valid for the duration of the call.
func ReadParquet(ctx context.Context, path string, fn func(rec arrow.Record) error) error {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return eris.Wrapf(err, "lake: open parquet %s", filepath.Base(path))
	}
	defer rdr.Close() //nolint:errcheck

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return eris.Wrapf(err, "lake: parquet reader for %s", filepath.Base(path))
	}

	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return eris.Wrapf(err, "lake: read parquet %s", filepath.Base(path))
	}
	defer tbl.Release()

	tr := array.NewTableReader(tbl, 0)
	defer tr.Release()
	for tr.Next() {
		if err := fn(tr.Record()); err != nil {
			return err
		}
	}
	return nil
}

// Column returns the named column of rec, failing when it is absent.
func Column(rec arrow.Record, name string) (arrow.Array, error) {
	idx := rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, eris.Errorf("lake: column %q missing", name)
	}
	return rec.Column(idx[0]), nil
}
