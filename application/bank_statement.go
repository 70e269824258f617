package application

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"bookie/settlement-engine/domain/entities"
)

// bankStatementHeader is the column layout bank exports are expected to use
var bankStatementHeader = []string{"date", "description", "debit", "credit", "balance", "reference"}

// ParseBankStatement reads a bank statement CSV into statement lines.
// The first row must be the header; amounts are minor currency units.
func ParseBankStatement(r io.Reader) ([]entities.BankStatementLine, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, entities.NewValidationError("statement", "statement is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read statement header: %w", err)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	var lines []entities.BankStatementLine
	for lineNo := 2; ; lineNo++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read statement line %d: %w", lineNo, err)
		}

		line, err := parseLine(record, lineNo)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	return lines, nil
}

func validateHeader(header []string) error {
	if len(header) != len(bankStatementHeader) {
		return entities.NewValidationError("statement", fmt.Sprintf("expected %d columns, got %d", len(bankStatementHeader), len(header)))
	}
	for i, want := range bankStatementHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return entities.NewValidationError("statement", fmt.Sprintf("unexpected column %q, want %q", header[i], want))
		}
	}
	return nil
}

func parseLine(record []string, lineNo int) (entities.BankStatementLine, error) {
	var line entities.BankStatementLine

	date, err := time.Parse("2006-01-02", strings.TrimSpace(record[0]))
	if err != nil {
		return line, entities.NewValidationError("statement", fmt.Sprintf("line %d: bad date %q", lineNo, record[0]))
	}

	debit, err := parseAmount(record[2])
	if err != nil {
		return line, entities.NewValidationError("statement", fmt.Sprintf("line %d: bad debit %q", lineNo, record[2]))
	}
	credit, err := parseAmount(record[3])
	if err != nil {
		return line, entities.NewValidationError("statement", fmt.Sprintf("line %d: bad credit %q", lineNo, record[3]))
	}
	balance, err := parseAmount(record[4])
	if err != nil {
		return line, entities.NewValidationError("statement", fmt.Sprintf("line %d: bad balance %q", lineNo, record[4]))
	}

	if debit < 0 || credit < 0 {
		return line, entities.NewValidationError("statement", fmt.Sprintf("line %d: amounts must be non-negative", lineNo))
	}
	if (debit == 0) == (credit == 0) {
		return line, entities.NewValidationError("statement", fmt.Sprintf("line %d: exactly one of debit or credit must be set", lineNo))
	}

	line.Date = date
	line.Description = strings.TrimSpace(record[1])
	line.Debit = debit
	line.Credit = credit
	line.Balance = balance
	line.Reference = strings.TrimSpace(record[5])
	return line, nil
}

func parseAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
