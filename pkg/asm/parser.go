// Package asm provides the .wsa assembly language for Whitespace: a
// participle grammar, an assembler, a code Builder and a disassembler.
//
// A .wsa file holds one statement per line:
//
//	loop:               ; named label
//	$STS:               ; raw label key, the LF is implied
//	push -12            ; mnemonic and optional operand
//	push 'A'
//	print "hello\n"     ; push+outc per character
//	jz loop
//	raw $STL            ; verbatim symbols
//
// Comments start with ';' or '#'.
package asm

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// File is the top-level AST node
type File struct {
	Lines []*Line `@@*`
}

// Line is an optional label definition followed by an optional instruction
type Line struct {
	Pos lexer.Position

	Label *string      `( @( Ident | Raw ) ":" )?`
	Instr *Instruction `@@?`
	EOL   bool         `@EOL`
}

// Instruction: mnemonic [operand]
type Instruction struct {
	Pos lexer.Position

	Mnemonic string   `@Ident`
	Arg      *Operand `@@?`
}

// Operand is a literal, a label name or a raw symbol string
type Operand struct {
	Int    *string `  @Int`
	Char   *string `| @Char`
	String *string `| @String`
	Raw    *string `| @Raw`
	Name   *string `| @Ident`
}

// Whitespace assembly lexer definition
var wsaLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `[;#][^\n]*`},
	{Name: "EOL", Pattern: `\n`},
	{Name: "Whitespace", Pattern: `[ \t\r]+`},

	// Literals
	{Name: "String", Pattern: `"(\\.|[^"\\\n])*"`},
	{Name: "Char", Pattern: `'(\\.|[^'\\\n])+'`},
	{Name: "Int", Pattern: `[-+]?[0-9]+`},
	{Name: "Raw", Pattern: `\$[STLstl]*`},

	// Mnemonics and label names, e.g. jump-zero, print_line, .L1
	{Name: "Ident", Pattern: `[a-zA-Z_.][a-zA-Z0-9_.\-]*`},

	{Name: "Punct", Pattern: `:`},
})

// Parser is the .wsa parser
var Parser = participle.MustBuild[File](
	participle.Lexer(wsaLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// Parse parses .wsa source. A final newline is optional.
func Parse(filename, source string) (*File, error) {
	return Parser.ParseString(filename, source+"\n")
}
