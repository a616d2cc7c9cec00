// Package vcf reads per-sample genotype records from VCF files.
package vcf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
)

// VCF columns
const (
	colChrom int = iota
	colPos
	colID
	colRef
	colAlt
	colQual
	colFilter
	colInfo
	colFormat
	colFirstSample
)

// Parser reads genotype records from a VCF stream. Plain and gzipped
// (including bgzipped) input are detected from the first bytes.
type Parser struct {
	r       *bufio.Reader
	closers []io.Closer
	line    int
	meta    []string // ## lines
	samples []string // sample names from the #CHROM line
}

// NewParser opens the VCF at path; "-" reads stdin.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}
	p, err := newParser(f, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return p, nil
}

// NewParserFromReader creates a parser reading from r.
func NewParserFromReader(r io.Reader) (*Parser, error) {
	return newParser(r)
}

func newParser(r io.Reader, closers ...io.Closer) (*Parser, error) {
	p := &Parser{r: bufio.NewReader(r), closers: closers}

	magic, _ := p.r.Peek(2)
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := pgzip.NewReader(p.r)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.closers = append([]io.Closer{gz}, p.closers...)
		p.r = bufio.NewReader(gz)
	}

	if err := p.readHeader(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// readLine returns the next line without its terminator; ok is false at EOF.
func (p *Parser) readLine() (line string, ok bool, err error) {
	line, err = p.r.ReadString('\n')
	if err == io.EOF {
		if line == "" {
			return "", false, nil
		}
		err = nil
	}
	if err != nil {
		return "", false, err
	}
	p.line++
	return strings.TrimRight(line, "\r\n"), true, nil
}

// readHeader consumes the meta lines and the #CHROM line.
func (p *Parser) readHeader() error {
	for {
		line, ok, err := p.readLine()
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		if !ok {
			return &ParseError{Line: p.line, Message: "no #CHROM header line found"}
		}
		switch {
		case strings.HasPrefix(line, "##"):
			p.meta = append(p.meta, line)
		case strings.HasPrefix(line, "#CHROM"):
			if fields := strings.Split(line, "\t"); len(fields) > colFirstSample {
				p.samples = fields[colFirstSample:]
			}
			return nil
		default:
			return &ParseError{Line: p.line, Message: "expected #CHROM header line"}
		}
	}
}

// Next returns the next record, or nil, nil at end of input.
func (p *Parser) Next() (*Variant, error) {
	for {
		line, ok, err := p.readLine()
		if err != nil {
			return nil, fmt.Errorf("read variant line: %w", err)
		}
		if !ok {
			return nil, nil
		}
		if line != "" {
			return p.parseRecord(line)
		}
	}
}

func (p *Parser) parseRecord(line string) (*Variant, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < colFormat {
		return nil, &ParseError{Line: p.line, Message: fmt.Sprintf("expected at least %d columns, found %d", colFormat, len(fields))}
	}
	pos, err := strconv.ParseInt(fields[colPos], 10, 64)
	if err != nil {
		return nil, &ParseError{Line: p.line, Message: fmt.Sprintf("invalid position: %s", fields[colPos])}
	}

	v := &Variant{
		Chrom:  fields[colChrom],
		Pos:    pos,
		ID:     fields[colID],
		Ref:    fields[colRef],
		Alt:    fields[colAlt],
		Filter: fields[colFilter],
	}
	if len(fields) > colFormat {
		v.Format = strings.Split(fields[colFormat], ":")
		v.Samples = fields[colFirstSample:]
	}
	if len(v.Samples) != len(p.samples) {
		return nil, &ParseError{Line: p.line, Message: fmt.Sprintf("expected %d sample columns, found %d", len(p.samples), len(v.Samples))}
	}
	return v, nil
}

// Meta returns the ## meta-information lines.
func (p *Parser) Meta() []string {
	return p.meta
}

// SampleNames returns the sample names of the #CHROM line, nil if there are none.
func (p *Parser) SampleNames() []string {
	return p.samples
}

// Close closes the gzip stream and the underlying file, if any.
func (p *Parser) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
