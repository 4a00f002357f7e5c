package gateway

import (
	"io"
	"mime/multipart"
)

// FormBody is a multipart body that is produced while it is being sent.
// A body that is never handed to a transport must be closed.
type FormBody struct {
	Reader      io.Reader
	ContentType string

	pr *io.PipeReader
}

// FormField is one part of a multipart body. Exactly one of Value or File is
// used; File parts carry FileName.
type FormField struct {
	Name     string
	Value    string
	FileName string
	File     io.Reader
}

// NewFormBody streams fields as multipart/form-data through a pipe, so file
// parts are never buffered in memory. A write error (including one from a
// File reader) surfaces as the read error of the returned body.
func NewFormBody(fields ...FormField) *FormBody {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeFields(mw, fields))
	}()

	return &FormBody{Reader: pr, ContentType: mw.FormDataContentType(), pr: pr}
}

// Close abandons the body and stops the goroutine producing it.
func (b *FormBody) Close() error {
	if b.pr == nil {
		return nil
	}
	return b.pr.Close()
}

func writeFields(mw *multipart.Writer, fields []FormField) error {
	for _, f := range fields {
		if f.File == nil {
			if err := mw.WriteField(f.Name, f.Value); err != nil {
				return err
			}
			continue
		}
		part, err := mw.CreateFormFile(f.Name, f.FileName)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f.File); err != nil {
			return err
		}
	}
	return mw.Close()
}
