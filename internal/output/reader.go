package output

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/inodb/vibe-gwas/internal/assoc"
)

// ParseError represents an error parsing a result table.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("table parse error at line %d: %s", e.Line, e.Message)
}

// ReadAssociations reads an association table written by WriteAssociations.
// Columns are located by header name; SNP and P are required.
func ReadAssociations(r io.Reader) ([]assoc.Result, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read association header: %w", err)
		}
		return nil, &ParseError{Line: 1, Message: "missing header"}
	}

	index := make(map[string]int)
	for i, name := range strings.Split(scanner.Text(), "\t") {
		index[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"SNP", "P"} {
		if _, ok := index[required]; !ok {
			return nil, &ParseError{Line: 1, Message: fmt.Sprintf("missing column %s", required)}
		}
	}

	var results []assoc.Result
	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")

		get := func(col string) (string, bool) {
			i, ok := index[col]
			if !ok || i >= len(fields) {
				return "", false
			}
			return fields[i], true
		}
		num := func(col string) (float64, error) {
			s, ok := get(col)
			if !ok || s == "NA" || s == "" {
				return math.NaN(), nil
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, &ParseError{Line: lineNum, Message: fmt.Sprintf("invalid %s value %q", col, s)}
			}
			return v, nil
		}

		var res assoc.Result
		var err error
		res.SNP, _ = get("SNP")
		res.A1, _ = get("A1")
		res.Chr, _ = get("CHR")
		if res.Beta, err = num("BETA"); err != nil {
			return nil, err
		}
		if res.Stat, err = num("STAT"); err != nil {
			return nil, err
		}
		if res.P, err = num("P"); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read associations: %w", err)
	}
	return results, nil
}
