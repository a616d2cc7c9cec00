package cohort

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/csimplestring/go-csv/detector"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/inodb/vibe-gwas/internal/errs"
)

// SubjectColumn is the column joining phenotype, covariate and genotype sample data.
const SubjectColumn = "FID"

type tableKind int

const (
	tableNone tableKind = iota
	tablePath
	tableFrame
)

// Table is either a path to a delimited text file or an already loaded frame.
// The zero value means "not supplied".
type Table struct {
	kind  tableKind
	path  string
	frame dataframe.DataFrame
}

// TablePath returns a Table read from the delimited file at p.
func TablePath(p string) Table {
	return Table{kind: tablePath, path: p}
}

// TableFrame returns a Table wrapping a loaded frame.
func TableFrame(df dataframe.DataFrame) Table {
	return Table{kind: tableFrame, frame: df}
}

// Supplied reports whether t refers to any data.
func (t Table) Supplied() bool {
	return t.kind != tableNone
}

// load resolves t into a frame of string columns.
func (t Table) load(name string) (dataframe.DataFrame, error) {
	switch t.kind {
	case tablePath:
		f, err := os.Open(t.path)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("open %s table: %w", name, err)
		}
		defer f.Close()
		return ReadTable(f, name)
	case tableFrame:
		if t.frame.Err != nil {
			return dataframe.DataFrame{}, &errs.FormatError{Input: name, Message: t.frame.Err.Error()}
		}
		return t.frame, nil
	default:
		return dataframe.DataFrame{}, errs.Missing(name)
	}
}

// ReadTable reads a delimited text table with a header row. The delimiter is
// detected from the content; space-delimited tables may use runs of blanks.
// All columns are loaded as strings.
func ReadTable(r io.Reader, name string) (dataframe.DataFrame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read %s table: %w", name, err)
	}
	split := splitterFor(detectDelimiter(data))

	var records [][]string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := split(line)
		if len(records) > 0 && len(fields) != len(records[0]) {
			return dataframe.DataFrame{}, &errs.FormatError{
				Input:   name,
				Message: fmt.Sprintf("line %d: expected %d fields, found %d", lineNum, len(records[0]), len(fields)),
			}
		}
		records = append(records, fields)
	}
	if err := scanner.Err(); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("scan %s table: %w", name, err)
	}
	if len(records) == 0 {
		return dataframe.DataFrame{}, &errs.FormatError{Input: name, Message: "empty table"}
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, &errs.FormatError{Input: name, Message: df.Err.Error()}
	}
	return df, nil
}

// detectDelimiter returns the most likely field delimiter. Without a detector
// answer the header line decides between tab, comma and blanks. Candidates such as '.' that also occur
// inside numeric values are ignored.
func detectDelimiter(data []byte) rune {
	d := detector.New()
	for _, c := range d.DetectDelimiter(bytes.NewReader(data), '"') {
		if c == "" {
			continue
		}
		switch r := rune(c[0]); r {
		case '\t', ' ', ',', ';':
			return r
		}
	}
	header, _, _ := bytes.Cut(data, []byte("\n"))
	for _, r := range []rune{'\t', ','} {
		if bytes.ContainsRune(header, r) {
			return r
		}
	}
	return ' '
}

func splitterFor(delim rune) func(string) []string {
	if delim == ' ' {
		return strings.Fields
	}
	sep := string(delim)
	return func(line string) []string {
		fields := strings.Split(line, sep)
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		return fields
	}
}
