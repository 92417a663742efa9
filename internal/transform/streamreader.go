package transform

import "io"

// StreamReader adapts a Stage to io.Reader, concatenating each block
// the stage yields in order. The chunk manager uses it to turn the
// read-path chain into a stream of plaintext bytes; the write path is
// driven by Finisher instead.
type StreamReader struct {
	stage   Stage
	pending []byte
	err     error
}

var _ io.Reader = (*StreamReader)(nil)

// NewStreamReader wraps stage as an io.Reader.
func NewStreamReader(stage Stage) *StreamReader {
	return &StreamReader{stage: stage}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		if !r.stage.HasNext() {
			r.err = io.EOF
			return 0, io.EOF
		}
		block, err := r.stage.Next()
		if err != nil {
			r.err = err
			return 0, err
		}
		r.pending = block
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}
