package cpu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// asmLexer splits a single source line into tokens.
var asmLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `;[^\n]*`},
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
	{Name: "Expr", Pattern: `\$\((?:[^()\n]|\([^()\n]*\))*\)`},
	{Name: "Char", Pattern: `'(\\.|[^'\\])'`},
	{Name: "Number", Pattern: `[-+]?(0[xX][0-9a-fA-F_]+|0[bB][01_]+|0[oO][0-7_]+|[0-9][0-9_]*)`},
	{Name: "Ident", Pattern: `[A-Za-z_.][A-Za-z0-9_.]*`},
	{Name: "Punct", Pattern: `[,:]`},
})

var (
	asmSymbols    = asmLexer.Symbols()
	tokComment    = asmSymbols["Comment"]
	tokWhitespace = asmSymbols["Whitespace"]
	tokIdent      = asmSymbols["Ident"]
	tokPunct      = asmSymbols["Punct"]
)

var (
	identRe    = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)
	registerRe = regexp.MustCompile(`^[rR][0-9]+$`)
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

// equateDepth bounds the expansion of equates defined in terms of equates.
const equateDepth = 16

// Assembler is a two pass assembler: the first pass records labels, equates
// and instruction sizes, the second encodes operands.
type Assembler struct {
	Verbose bool         // If set, verbosely logs the assembler actions.
	Logger  *slog.Logger // Destination of verbose logs, slog.Default() if nil.
	Opcode  []Opcode     // List of generated opcodes.

	predefine map[string]string // Predefines
	Label     map[string]int    // Map of labels to byte offsets.
	Equate    map[string]string // Map of equates.
}

// sourceLine is an instruction line found by the first pass.
type sourceLine struct {
	lineNo   int
	text     string
	ip       int
	words    []string
	format   Format
	operands []string
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// PredefineAll predefines every equate of a sequence, such as Config.Defines().
func (asm *Assembler) PredefineAll(defines iter.Seq2[string, string]) {
	for equ, value := range defines {
		asm.Predefine(equ, value)
	}
}

func (asm *Assembler) log() *slog.Logger {
	if asm.Logger == nil {
		return slog.Default()
	}
	return asm.Logger
}

// tokenize lexes a line, dropping whitespace and comments.
func tokenize(line string) (tokens []lexer.Token, err error) {
	lex, err := asmLexer.LexString("", line)
	if err != nil {
		return
	}

	all, err := lexer.ConsumeAll(lex)
	if err != nil {
		return
	}

	for _, tok := range all {
		if tok.EOF() {
			break
		}
		if tok.Type == tokComment || tok.Type == tokWhitespace {
			continue
		}
		tokens = append(tokens, tok)
	}

	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	if asm.Label == nil {
		asm.Label = make(map[string]int, 16)
	}
	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	// First pass: labels, equates and instruction sizes.
	var lines []sourceLine
	ip := 0
	for scanner.Scan() {
		line = scanner.Text()
		lineno += 1

		if asm.Verbose {
			asm.log().Debug("asm: scan", "line", lineno, "ip", ip, "text", line)
		}

		var src sourceLine
		var ok bool
		src, ok, err = asm.scanLine(lineno, line, ip)
		if err != nil {
			return
		}
		if !ok {
			continue
		}

		lines = append(lines, src)
		ip += src.format.Size()
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	// Second pass: operand encoding and label resolution.
	for _, src := range lines {
		lineno = src.lineNo
		line = src.text

		var op Opcode
		op, err = asm.encode(src)
		if err != nil {
			return
		}

		if asm.Verbose {
			asm.log().Debug("asm: emit", "line", lineno, "ip", op.Ip, "insn", op.Instruction.String())
		}

		asm.Opcode = append(asm.Opcode, op)
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
		Labels:  maps.Clone(asm.Label),
	}

	return
}

// scanLine performs the first pass over a single line. ok is set if the
// line holds an instruction.
func (asm *Assembler) scanLine(lineno int, line string, ip int) (src sourceLine, ok bool, err error) {
	tokens, err := tokenize(line)
	if err != nil {
		err = errors.Join(ErrTokenInvalid, err)
		return
	}

	if len(tokens) == 0 {
		return
	}

	// .equ CONST VALUE
	if tokens[0].Type == tokIdent && strings.EqualFold(tokens[0].Value, ".equ") {
		if len(tokens) != 3 || tokens[1].Type != tokIdent || tokens[2].Type == tokPunct {
			err = ErrEquateSyntax
			return
		}
		_, dup := asm.Equate[tokens[1].Value]
		if dup {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[tokens[1].Value] = tokens[2].Value
		return
	}

	// label:
	for len(tokens) >= 2 && tokens[1].Type == tokPunct && tokens[1].Value == ":" {
		if tokens[0].Type != tokIdent {
			err = ErrLabelSyntax
			return
		}
		label := tokens[0].Value
		_, dup := asm.Label[label]
		if dup {
			err = ErrLabelDuplicate
			return
		}
		asm.Label[label] = ip
		tokens = tokens[2:]
	}

	if len(tokens) == 0 {
		return
	}

	if tokens[0].Type != tokIdent {
		err = ErrInstructionInvalid
		return
	}

	format, known := Lookup(tokens[0].Value)
	if !known {
		err = fmt.Errorf("%w: %v", ErrInstructionInvalid, tokens[0].Value)
		return
	}

	var operands []string
	expect := true
	for _, tok := range tokens[1:] {
		if tok.Type == tokPunct {
			if tok.Value != "," || expect {
				err = ErrOperandSyntax
				return
			}
			expect = true
			continue
		}
		if !expect {
			err = ErrOperandSyntax
			return
		}
		operands = append(operands, tok.Value)
		expect = false
	}
	if expect && len(tokens) > 1 {
		err = ErrOperandSyntax
		return
	}

	src = sourceLine{
		lineNo:   lineno,
		text:     line,
		ip:       ip,
		words:    append([]string{tokens[0].Value}, operands...),
		format:   format,
		operands: operands,
	}
	ok = true

	return
}

// encode performs the second pass over an instruction line.
func (asm *Assembler) encode(src sourceLine) (op Opcode, err error) {
	asm.Equate["LINENO"] = strconv.Itoa(src.lineNo)

	roles := src.format.Roles
	if len(src.operands) != len(roles) {
		err = fmt.Errorf("%w: %v takes %d, not %d", ErrOperandCount,
			src.format.Mnemonic, len(roles), len(src.operands))
		return
	}

	insn := Instruction{Code: src.format.Code}
	var link string
	for n, role := range roles {
		var value uint8
		var label string
		value, label, err = asm.operand(src.operands[n], role)
		if err != nil {
			return
		}
		if len(label) != 0 {
			link = label
		}
		insn.Args = append(insn.Args, value)
	}

	op = Opcode{
		LineNo:      src.lineNo,
		Ip:          src.ip,
		Words:       src.words,
		Instruction: insn,
		LinkLabel:   link,
	}

	return
}

// expand replaces an equate by its value.
func (asm *Assembler) expand(word string) string {
	for range equateDepth {
		value, ok := asm.Equate[word]
		if !ok {
			break
		}
		word = value
	}
	return word
}

// operand encodes a single operand word for its role. label is set if the
// operand was resolved from a label.
func (asm *Assembler) operand(word string, role Role) (value uint8, label string, err error) {
	word = asm.expand(word)

	var v int64
	switch {
	case registerRe.MatchString(word):
		if role != ROLE_REG {
			err = fmt.Errorf("%w: register %v as %v", ErrOperandKind, word, role)
			return
		}
		v, err = parseNumber(word[1:])
	case strings.HasPrefix(word, "$("):
		v, err = asm.parenEval(word[2 : len(word)-1])
	case strings.HasPrefix(word, "'"):
		v, err = parseChar(word)
	case identRe.MatchString(word):
		offset, found := asm.Label[word]
		if role != ROLE_ADDR {
			if found {
				err = fmt.Errorf("%w: label %v as %v", ErrOperandKind, word, role)
			} else {
				err = ErrParseNumber(word)
			}
			return
		}
		if !found {
			err = ErrUnresolvedLabel(word)
			return
		}
		v = int64(offset)
		label = word
	default:
		v, err = parseNumber(word)
	}
	if err != nil {
		return
	}

	if v < 0 || v > 0xff {
		err = fmt.Errorf("%w: %v", ErrOperandOverflow, word)
		return
	}

	value = uint8(v)
	return
}

// parseNumber parses a decimal, hex, octal or binary literal.
func parseNumber(word string) (value int64, err error) {
	value, err = strconv.ParseInt(word, 0, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			err = fmt.Errorf("%w: %v", ErrOperandOverflow, word)
		} else {
			err = ErrParseNumber(word)
		}
	}
	return
}

// parseChar parses a quoted character literal.
func parseChar(word string) (value int64, err error) {
	if len(word) < 3 || word[len(word)-1] != '\'' {
		err = ErrParseNumber(word)
		return
	}

	r, _, tail, err := strconv.UnquoteChar(word[1:len(word)-1], '\'')
	if err != nil || len(tail) != 0 {
		err = ErrParseNumber(word)
		return
	}

	value = int64(r)
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var number int64
		number, err = parseNumber(asm.expand(str))
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt64(number)
	}
	for key, offset := range asm.Label {
		_, shadowed := pred[key]
		if !shadowed {
			pred[key] = starlark.MakeInt(offset)
		}
	}

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = errors.Join(ErrParseExpression(expr), err)
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = fmt.Errorf("%w: $(%v)", ErrOperandOverflow, expr)
		return
	}
	return
}
