package trace

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/wsLang/ws/pkg/vm"
)

// FlushInterval is the number of records between flushes of the
// compressor and of w, when w has a Flush method. A trace cut short reads
// back up to the last flush.
const FlushInterval = 256

type flusher interface {
	Flush() error
}

// Recorder is a vm.Hook that writes one record per executed instruction.
type Recorder struct {
	Header Header

	out    flusher // nil unless w can flush
	zw     *zstd.Encoder
	enc    *cbor.Encoder
	seq    uint64
	closed bool
}

// NewRecorder writes the file header to w and returns a recorder for a
// program of programLen symbols. name is stored for display only.
func NewRecorder(w io.Writer, name string, programLen int, compress bool) (*Recorder, error) {
	var flags byte
	if compress {
		flags |= FlagCompressed
	}
	if _, err := io.WriteString(w, Magic); err != nil {
		return nil, fmt.Errorf("writing trace magic: %w", err)
	}
	if _, err := w.Write([]byte{flags}); err != nil {
		return nil, fmt.Errorf("writing trace flags: %w", err)
	}

	r := &Recorder{
		Header: Header{
			Version:    Version,
			RunID:      uuid.New(),
			Program:    name,
			ProgramLen: programLen,
			Started:    time.Now().UTC(),
		},
	}
	r.out, _ = w.(flusher)
	if compress {
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("creating zstd writer: %w", err)
		}
		r.zw = zw
		w = zw
	}
	r.enc = cborEncMode.NewEncoder(w)
	if err := r.enc.Encode(&r.Header); err != nil {
		return nil, fmt.Errorf("writing trace header: %w", err)
	}
	if err := r.flush(); err != nil {
		return nil, err
	}
	log.Debugf("recording run %s", r.Header.RunID)
	return r, nil
}

// OnStep implements vm.Hook.
func (r *Recorder) OnStep(st *vm.Step) error {
	if r.closed {
		return errors.New("trace recorder is closed")
	}
	r.seq++
	rec := &Record{
		Seq:        r.seq,
		IP:         st.IP,
		Op:         st.Inst.Name,
		Operand:    st.Operand(),
		NextIP:     st.NextIP,
		StackDepth: st.VM.StackDepth(),
		CallDepth:  st.VM.CallDepth(),
		Top:        st.VM.Top(),
	}
	if err := r.enc.Encode(frame{Step: rec}); err != nil {
		return fmt.Errorf("writing trace record %d: %w", r.seq, err)
	}
	if r.seq%FlushInterval == 0 {
		return r.flush()
	}
	return nil
}

func (r *Recorder) flush() error {
	if r.zw != nil {
		if err := r.zw.Flush(); err != nil {
			return fmt.Errorf("flushing zstd stream: %w", err)
		}
	}
	if r.out != nil {
		if err := r.out.Flush(); err != nil {
			return fmt.Errorf("flushing trace: %w", err)
		}
	}
	return nil
}

// Finish writes the summary of m's run and flushes the stream. It does
// not close the underlying writer.
func (r *Recorder) Finish(m *vm.VM) error {
	if r.closed {
		return nil
	}
	r.closed = true

	sum := &Summary{
		State:    m.State().String(),
		Steps:    m.Steps(),
		Duration: time.Since(r.Header.Started),
	}
	if err := m.Err(); err != nil {
		sum.Error = err.Error()
	}
	if err := r.enc.Encode(frame{End: sum}); err != nil {
		return fmt.Errorf("writing trace summary: %w", err)
	}
	if r.zw != nil {
		if err := r.zw.Close(); err != nil {
			return fmt.Errorf("closing zstd stream: %w", err)
		}
	}
	if r.out != nil {
		if err := r.out.Flush(); err != nil {
			return fmt.Errorf("flushing trace: %w", err)
		}
	}
	log.Debugf("recorded %d steps of run %s", r.seq, r.Header.RunID)
	return nil
}
