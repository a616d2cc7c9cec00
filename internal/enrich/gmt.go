package enrich

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadGMT reads a gene-set file with one tab-separated record per line:
// name, description, then member genes. Records are returned as read; short
// records are kept so they still count towards Bonferroni correction.
func ReadGMT(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gene sets: %w", err)
	}
	defer f.Close()

	var records [][]string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		records = append(records, strings.Split(strings.TrimSpace(scanner.Text()), "\t"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gene sets: %w", err)
	}
	return records, nil
}

// ReadGeneList reads one gene per line. Lines are trimmed; blank lines are
// skipped.
func ReadGeneList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gene list: %w", err)
	}
	defer f.Close()

	var genes []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if g := strings.TrimSpace(scanner.Text()); g != "" {
			genes = append(genes, g)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gene list: %w", err)
	}
	return genes, nil
}
