package upload

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// File is the local side of an upload. Size drives progress reporting;
// when it is not positive only the phase milestones are reported.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// OpenFile opens path for upload. The caller closes the returned file.
func OpenFile(path string) (File, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, nil, fmt.Errorf("open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return File{}, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.IsDir() {
		f.Close()
		return File{}, nil, fmt.Errorf("%s is a directory", path)
	}

	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return File{Name: filepath.Base(path), Size: st.Size(), ContentType: ct, Reader: f}, f, nil
}

// countingReader reports the running byte count after every read.
type countingReader struct {
	r      io.Reader
	total  int64
	sent   int64
	report func(sent, total int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.sent += int64(n)
		c.report(c.sent, c.total)
	}
	return n, err
}

// countingReadSeeker keeps the count in step with seeks, so SDKs that
// rewind the body for signing or retries do not inflate progress.
type countingReadSeeker struct {
	countingReader
	s io.Seeker
}

func (c *countingReadSeeker) Seek(offset int64, whence int) (int64, error) {
	pos, err := c.s.Seek(offset, whence)
	if err == nil {
		c.sent = pos
	}
	return pos, err
}

func newCountingReader(f File, report func(sent, total int64)) io.Reader {
	cr := countingReader{r: f.Reader, total: f.Size, report: report}
	if s, ok := f.Reader.(io.ReadSeeker); ok {
		return &countingReadSeeker{countingReader: cr, s: s}
	}
	return &cr
}
