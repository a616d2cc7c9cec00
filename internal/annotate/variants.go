package annotate

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/inodb/vibe-gwas/internal/errs"
)

// ParseVariantID splits a "chromosome:position" id. Further colon-separated
// fields (alleles) are ignored.
func ParseVariantID(id string) (string, int64, error) {
	parts := strings.Split(id, ":")
	if len(parts) < 2 || parts[0] == "" {
		return "", 0, &errs.FormatError{Input: "variant id", Message: fmt.Sprintf("%q is not chromosome:position", id)}
	}
	pos, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, &errs.FormatError{Input: "variant id", Message: fmt.Sprintf("%q has a non-integer position", id)}
	}
	return parts[0], pos, nil
}

// ReadVariantList reads one variant id per line, skipping blank lines.
func ReadVariantList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open variant list: %w", err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			ids = append(ids, id)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read variant list: %w", err)
	}
	return ids, nil
}
