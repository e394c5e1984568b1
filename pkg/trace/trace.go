// Package trace records executions to a compact binary file and reads
// them back.
//
// A trace file starts with the 8-byte magic "WSTRACE1" and a flags byte.
// The rest is a CBOR sequence, zstd-compressed when FlagCompressed is set:
// one Header, one frame per executed instruction, and a final frame
// holding the Summary.
package trace

import (
	"fmt"
	"math/big"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("ws.trace")

// Magic starts every trace file.
const Magic = "WSTRACE1"

// Flag bits stored after the magic.
const (
	FlagCompressed byte = 1 << iota
)

// Version of the record layout.
const Version = 1

var cborEncMode cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	opts.BigIntConvert = cbor.BigIntConvertNone
	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Header describes the traced run.
type Header struct {
	Version    int       `cbor:"1,keyasint"`
	RunID      uuid.UUID `cbor:"2,keyasint"`
	Program    string    `cbor:"3,keyasint,omitempty"` // file name
	ProgramLen int       `cbor:"4,keyasint"`
	Started    time.Time `cbor:"5,keyasint"`
}

// Record is one executed instruction.
type Record struct {
	Seq        uint64   `cbor:"1,keyasint"`
	IP         int      `cbor:"2,keyasint"`
	Op         string   `cbor:"3,keyasint"`
	Operand    string   `cbor:"4,keyasint,omitempty"`
	NextIP     int      `cbor:"5,keyasint"`
	StackDepth int      `cbor:"6,keyasint"`
	CallDepth  int      `cbor:"7,keyasint"`
	Top        *big.Int `cbor:"8,keyasint,omitempty"`
}

// Summary is written when the run ends.
type Summary struct {
	State    string        `cbor:"1,keyasint"`
	Error    string        `cbor:"2,keyasint,omitempty"`
	Steps    uint64        `cbor:"3,keyasint"`
	Duration time.Duration `cbor:"4,keyasint"`
}

// frame wraps the entries that follow the header
type frame struct {
	Step *Record  `cbor:"1,keyasint,omitempty"`
	End  *Summary `cbor:"2,keyasint,omitempty"`
}

func (r *Record) String() string {
	s := fmt.Sprintf("#%d\t%d\t%s", r.Seq, r.IP, r.Op)
	if r.Operand != "" {
		s += " " + r.Operand
	}
	s += fmt.Sprintf("\t-> %d\tstack=%d calls=%d", r.NextIP, r.StackDepth, r.CallDepth)
	if r.Top != nil {
		s += " top=" + r.Top.String()
	}
	return s
}
