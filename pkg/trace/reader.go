package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// ErrNotTrace is returned for input that does not start with Magic.
var ErrNotTrace = errors.New("not a trace file")

// Reader reads a trace written by Recorder.
type Reader struct {
	Header     Header
	Compressed bool
	Truncated  bool // the stream ended inside a record

	zr      *zstd.Decoder
	dec     *cbor.Decoder
	summary *Summary
}

// NewReader reads the file header from r.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	head := make([]byte, len(Magic)+1)
	if _, err := io.ReadFull(br, head); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrNotTrace
		}
		return nil, err
	}
	if string(head[:len(Magic)]) != Magic {
		return nil, ErrNotTrace
	}

	tr := &Reader{Compressed: head[len(Magic)]&FlagCompressed != 0}
	var src io.Reader = br
	if tr.Compressed {
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("opening zstd stream: %w", err)
		}
		tr.zr = zr
		src = zr
	}
	tr.dec = cbor.NewDecoder(src)
	if err := tr.dec.Decode(&tr.Header); err != nil {
		tr.Close()
		return nil, fmt.Errorf("reading trace header: %w", err)
	}
	if tr.Header.Version != Version {
		tr.Close()
		return nil, fmt.Errorf("unsupported trace version %d", tr.Header.Version)
	}
	return tr, nil
}

// Next returns the next record, or io.EOF after the last one. A trace cut
// short before its summary also ends with io.EOF; Summary then returns
// nil.
func (tr *Reader) Next() (*Record, error) {
	for tr.summary == nil {
		var f frame
		if err := tr.dec.Decode(&f); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				tr.Truncated = true
				return nil, io.EOF
			}
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("reading trace record: %w", err)
		}
		switch {
		case f.Step != nil:
			return f.Step, nil
		case f.End != nil:
			tr.summary = f.End
		}
	}
	return nil, io.EOF
}

// Summary returns the run summary once Next has returned io.EOF.
func (tr *Reader) Summary() *Summary { return tr.summary }

// Close releases the decompressor.
func (tr *Reader) Close() {
	if tr.zr != nil {
		tr.zr.Close()
		tr.zr = nil
	}
}

// ReadAll reads every record of a trace.
func ReadAll(r io.Reader) (*Reader, []*Record, error) {
	tr, err := NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	defer tr.Close()

	var records []*Record
	for {
		rec, err := tr.Next()
		if err == io.EOF {
			return tr, records, nil
		}
		if err != nil {
			return tr, records, err
		}
		records = append(records, rec)
	}
}
