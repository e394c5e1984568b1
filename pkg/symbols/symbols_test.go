package symbols

import (
	"strings"
	"testing"
)

func TestFilterDropsComments(t *testing.T) {
	prog, stats := Filter([]byte("a \tb\nc"))
	if got := Visible(prog); got != "STL" {
		t.Errorf("Expected STL, got %s", got)
	}
	if stats.Bytes != 6 || stats.Symbols != 3 || stats.Dropped != 3 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestLoad(t *testing.T) {
	prog, stats, err := Load(strings.NewReader("push\t \n\r"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got := Visible(prog); got != "TSL" {
		t.Errorf("Expected TSL, got %s", got)
	}
	// '\r' is not significant.
	if stats.Dropped != 5 {
		t.Errorf("Expected 5 dropped bytes, got %d", stats.Dropped)
	}
}

func TestVisibleRoundTrip(t *testing.T) {
	tests := []string{"", "S", "STL", "LLL", "TSTTSL"}
	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			prog, err := ParseVisible(tt)
			if err != nil {
				t.Fatalf("ParseVisible error: %v", err)
			}
			if got := Visible(prog); got != tt {
				t.Errorf("Expected %q, got %q", tt, got)
			}
		})
	}
}

func TestParseVisibleRejectsUnknownLetters(t *testing.T) {
	if _, err := ParseVisible("SXT"); err == nil {
		t.Error("Expected error for X")
	}
}

func TestDescribe(t *testing.T) {
	got := Describe(MustParseVisible("STL"))
	if got != "[Space][Tab][LF]" {
		t.Errorf("Expected [Space][Tab][LF], got %s", got)
	}
}

func TestProgramSymbolAt(t *testing.T) {
	prog := MustParseVisible("ST")
	if s, ok := prog.SymbolAt(1); !ok || s != Tab {
		t.Errorf("Expected Tab at 1, got %v %v", s, ok)
	}
	if _, ok := prog.SymbolAt(2); ok {
		t.Error("Expected no symbol past end")
	}
	if _, ok := prog.SymbolAt(-1); ok {
		t.Error("Expected no symbol before start")
	}
	if string(prog.Bytes()) != " \t" {
		t.Errorf("Unexpected bytes %q", prog.Bytes())
	}
}
