package data

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	"github.com/pkg/errors"
)

// ReadCSV loads a whole csv file with a header row.
func ReadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errtypes.IO(err, "open %s", path)
	}
	defer file.Close()

	t, err := ReadCSVFrom(bufio.NewReader(file))
	if err != nil {
		return nil, errors.WithMessagef(err, "read %s", path)
	}
	return t, nil
}

// ReadCSVFrom parses csv with a header row. Every row must have as many
// fields as the header.
func ReadCSVFrom(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 0

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errtypes.DataFormat("empty csv: no header row")
	}
	if err != nil {
		return nil, asFormatError(err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	t := &Table{Header: append([]string(nil), header...)}
	t.reindex()
	if len(t.index) != len(t.Header) {
		return nil, errtypes.DataFormat("duplicated column in header %v", t.Header)
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, asFormatError(err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func asFormatError(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return errtypes.DataFormat("malformed csv: %s", perr.Error())
	}
	return errtypes.IO(err, "read csv")
}

// WriteCSV writes the table to path. The file appears only when it is
// completely written.
func (t *Table) WriteCSV(path string) error {
	return WriteFileAtomic(path, t.Encode)
}

// Encode writes the table as csv with a header row.
func (t *Table) Encode(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteFileAtomic creates the parent directory of path, lets write fill a
// temporary file next to it and renames the temporary file onto path.
//
// Nothing is left at path when write fails.
func WriteFileAtomic(path string, write func(io.Writer) error) error {
	st := new(Staged)
	defer st.Discard()
	if err := st.Write(path, write); err != nil {
		return err
	}
	return st.Commit()
}

// Staged is a set of files written under temporary names, which Commit
// renames onto their paths together. A stage whose files cannot all be
// written leaves none of them behind.
//
//	st := new(data.Staged)
//	defer st.Discard()
//	if err := st.Write(a, encodeA); err != nil { return err }
//	if err := st.Write(b, encodeB); err != nil { return err }
//	return st.Commit()
type Staged struct {
	files []stagedFile
	done  bool
}

type stagedFile struct {
	tmp  string
	path string
}

// Write fills a temporary file next to path. Its parent directory is created.
func (s *Staged) Write(path string, write func(io.Writer) error) error {
	if s.done {
		return errtypes.IO(os.ErrClosed, "stage %s", path)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.FileMode(0o755)); err != nil {
		return errtypes.IO(err, "create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errtypes.IO(err, "create %s", path)
	}
	tmpname := tmp.Name()
	kept := false
	defer func() {
		if !kept {
			tmp.Close()
			os.Remove(tmpname)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		if errtypes.Kind(err) != "unknown" {
			return err
		}
		return errtypes.IO(err, "write %s", path)
	}
	if err := bw.Flush(); err != nil {
		return errtypes.IO(err, "write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errtypes.IO(err, "close %s", path)
	}
	kept = true
	s.files = append(s.files, stagedFile{tmp: tmpname, path: path})
	return nil
}

// Commit renames every staged file onto its path, in the order written.
// When a rename fails, files already renamed by this Commit are removed
// and the remaining temporaries discarded.
func (s *Staged) Commit() error {
	if s.done {
		return errtypes.IO(os.ErrClosed, "commit staged files")
	}
	s.done = true
	for i, f := range s.files {
		if err := os.Rename(f.tmp, f.path); err != nil {
			for _, c := range s.files[:i] {
				os.Remove(c.path)
			}
			for _, r := range s.files[i:] {
				os.Remove(r.tmp)
			}
			return errtypes.IO(err, "rename onto %s", f.path)
		}
	}
	return nil
}

// Discard removes the temporaries of an uncommitted stage. It does nothing
// after Commit.
func (s *Staged) Discard() {
	if s.done {
		return
	}
	s.done = true
	for _, f := range s.files {
		os.Remove(f.tmp)
	}
}
