package vos

import (
	"io"
	"os"
)

// VIO holds the standard streams of the shell.
type VIO interface {
	Stdin() io.ReadCloser
	Stdout() io.WriteCloser
	Stderr() io.WriteCloser
}

type VIOAdapter struct {
	IStdin  io.ReadCloser
	IStdout io.WriteCloser
	IStderr io.WriteCloser
}

func NewVIOAdapter(stdin io.Reader, stdout, stderr io.Writer) *VIOAdapter {
	return &VIOAdapter{
		IStdin:  toReadCloserOrDiscard(stdin),
		IStdout: toWriteCloserOrDiscard(stdout),
		IStderr: toWriteCloserOrDiscard(stderr),
	}
}

// NewNullIO creates a valid /dev/null style I/O, reads won't work and
// writes will be discarded.
func NewNullIO() VIO {
	return NewVIOAdapter(nil, nil, nil)
}

var _ VIO = (*VIOAdapter)(nil)

func (pr *VIOAdapter) Stdin() io.ReadCloser {
	return pr.IStdin
}

func (pr *VIOAdapter) Stdout() io.WriteCloser {
	return pr.IStdout
}

func (pr *VIOAdapter) Stderr() io.WriteCloser {
	return pr.IStderr
}

func toReadCloserOrDiscard(r io.Reader) io.ReadCloser {
	switch v := r.(type) {
	case nil:
		return &ClosedReader{}
	case io.ReadCloser:
		return v
	default:
		return io.NopCloser(v)
	}
}

func toWriteCloserOrDiscard(w io.Writer) io.WriteCloser {
	switch v := w.(type) {
	case nil:
		return &NopWriteCloser{}
	case io.WriteCloser:
		return v
	default:
		return &nopCloseWriter{v}
	}
}

// ClosedReader implements io.Reader and always throws ErrClosed on Read.
type ClosedReader struct{}

var _ io.ReadCloser = (*ClosedReader)(nil)

func (*ClosedReader) Read([]byte) (int, error) {
	return 0, os.ErrClosed
}

func (*ClosedReader) Close() error {
	return nil
}

type NopWriteCloser struct{}

var _ io.WriteCloser = (*NopWriteCloser)(nil)

func (*NopWriteCloser) Write(b []byte) (int, error) {
	return len(b), nil
}

func (*NopWriteCloser) Close() error {
	return nil
}

type nopCloseWriter struct {
	io.Writer
}

func (*nopCloseWriter) Close() error {
	return nil
}
