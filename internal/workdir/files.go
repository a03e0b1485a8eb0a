package workdir

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ResultRow is one completed docking result: SMILES plus score, more
// negative is better.
type ResultRow struct {
	SMILES string
	Score  float64
}

// ReadMoleculeList reads one SMILES per line, trimming whitespace and
// skipping blank lines. Duplicate lines collapse to the first occurrence;
// the count of dropped duplicates is returned so callers can log it.
func ReadMoleculeList(path string) (smiles []string, dups int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	seen := make(map[string]bool)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if seen[line] {
			dups++
			continue
		}
		seen[line] = true
		smiles = append(smiles, line)
	}
	return smiles, dups, sc.Err()
}

// WritePartition writes one SMILES per line, overwriting any prior file of
// the same name.
func WritePartition(path string, smiles []string) error {
	var b strings.Builder
	for _, s := range smiles {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

// AppendResult appends one SMILES,score row to a per-task output file,
// opening and closing per call so each completed molecule reaches disk
// before the next docking starts. That immediate append is what lets crash
// detection tell "partially done" from "not started".
func AppendResult(path, smiles string, score float64) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%s,%.4f\n", smiles, score)
	return err
}

// ReadResults parses a SMILES,score file. Rows with spaces after the comma
// are accepted (older runs wrote them that way). Malformed rows are
// skipped. A missing file yields no rows and no error: a task that crashed
// before its first write simply has nothing to show.
func ReadResults(path string) ([]ResultRow, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var rows []ResultRow
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		smi, rest, ok := strings.Cut(sc.Text(), ",")
		if !ok {
			continue
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
		if err != nil {
			continue
		}
		smi = strings.TrimSpace(smi)
		if smi == "" {
			continue
		}
		rows = append(rows, ResultRow{SMILES: smi, Score: score})
	}
	return rows, sc.Err()
}

// CountRows returns the number of well-formed result rows in a per-task
// output file, 0 when the file does not exist.
func CountRows(path string) (int, error) {
	rows, err := ReadResults(path)
	return len(rows), err
}

// ScoredSet returns the set of SMILES present in rows.
func ScoredSet(rows []ResultRow) map[string]bool {
	s := make(map[string]bool, len(rows))
	for _, r := range rows {
		s[r.SMILES] = true
	}
	return s
}
