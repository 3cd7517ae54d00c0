package lake

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// WriteAtomic writes path through a temp file in the same directory and
// renames it into place, so readers never observe a half-written artifact.
func WriteAtomic(path string, fn func(w io.Writer) error) error {
	var st Staging
	defer st.Discard()
	if err := st.Add(path, fn); err != nil {
		return err
	}
	return st.Commit()
}

// Staging writes a set of artifacts to temp files and moves them into place
// only once every one of them has been written. The zero value is ready to
// use.
type Staging struct {
	files []stagedFile
}

type stagedFile struct {
	tmp  string
	path string
}

// Add writes fn's output to a temp file next to path.
func (s *Staging) Add(path string, fn func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "lake: create dir for %s", filepath.Base(path))
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "lake: create temp for %s", filepath.Base(path))
	}

	// Hide Close from writers that close their sink; the file is closed here.
	if err := fn(struct{ io.Writer }{tmp}); err != nil {
		tmp.Close()           //nolint:errcheck
		os.Remove(tmp.Name()) //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return eris.Wrapf(err, "lake: close temp for %s", filepath.Base(path))
	}
	s.files = append(s.files, stagedFile{tmp: tmp.Name(), path: path})
	return nil
}

// Commit renames every staged file into place, in the order added.
func (s *Staging) Commit() error {
	for i, f := range s.files {
		if err := os.Rename(f.tmp, f.path); err != nil {
			s.files = s.files[i:]
			return eris.Wrapf(err, "lake: rename into %s", filepath.Base(f.path))
		}
	}
	s.files = nil
	return nil
}

// Discard removes staged files that were not committed.
func (s *Staging) Discard() {
	for _, f := range s.files {
		os.Remove(f.tmp) //nolint:errcheck
	}
	s.files = nil
}

// EncodeCSV writes a header and rows as delimited text.
func EncodeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "lake: write csv header")
	}
	if err := cw.WriteAll(rows); err != nil {
		return eris.Wrap(err, "lake: write csv rows")
	}
	return nil
}

// EncodeJSON writes v as indented JSON.
func EncodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "lake: encode json")
}

// ReadJSON decodes the JSON artifact at path into v.
func ReadJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "lake: open %s", filepath.Base(path))
	}
	defer f.Close() //nolint:errcheck
	return eris.Wrapf(json.NewDecoder(f).Decode(v), "lake: decode %s", filepath.Base(path))
}
