package invoice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordID accepts either a JSON number or a JSON string.
type RecordID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecordID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invoice: id must be a number or string: %w", err)
	}
	*id = RecordID(n.String())
	return nil
}

// Record is an invoice row as stored by the billing dashboard.
type Record struct {
	ID               RecordID        `json:"id"`
	Number           string          `json:"numero_fatura"`
	Carrier          string          `json:"transportadora" validate:"required"`
	ResponsibleParty string          `json:"responsavel"`
	Amount           json.RawMessage `json:"valor"`
	DueDate          string          `json:"data_vencimento" validate:"omitempty,datetime=2006-01-02"`
	Status           string          `json:"status"`
	Note             string          `json:"observacao"`
}

// DecodeRecords reads a JSON array of records.
func DecodeRecords(r io.Reader) ([]Record, error) {
	var records []Record
	dec := json.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("invoice: decode records: %w", err)
	}
	return records, nil
}

// PartyDirectory resolves the staff member responsible for a carrier.
type PartyDirectory map[string]string

// NewPartyDirectory indexes the mapping by trimmed, case-folded carrier name.
func NewPartyDirectory(mapping map[string]string) PartyDirectory {
	dir := make(PartyDirectory, len(mapping))
	for carrier, party := range mapping {
		carrier = foldKey(carrier)
		party = strings.TrimSpace(party)
		if carrier == "" || party == "" {
			continue
		}
		dir[carrier] = party
	}
	return dir
}

// Lookup returns the responsible party for carrier.
func (d PartyDirectory) Lookup(carrier string) (string, bool) {
	party, ok := d[foldKey(carrier)]
	return party, ok
}

func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Issue reports a defect found while normalising a record.
type Issue struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Field    string `json:"field"`
	Message  string `json:"message"`
	Rejected bool   `json:"rejected"`
}

func (i Issue) String() string {
	return fmt.Sprintf("record %d (%s) %s: %s", i.Index, i.ID, i.Field, i.Message)
}

// Intake converts stored records into engine invoices.
type Intake struct {
	directory PartyDirectory
	logger    *slog.Logger
	validate  *validator.Validate
	newID     func() string
}

// NewIntake builds an intake using the given party directory.
func NewIntake(logger *slog.Logger, directory PartyDirectory) *Intake {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Intake{directory: directory, logger: logger, validate: v, newID: uuid.NewString}
}

// Normalize validates records and applies the documented defaults. Records
// without a carrier are rejected; every other defect degrades to a default and
// is reported as a non-rejecting issue.
func (in *Intake) Normalize(records []Record) ([]Invoice, []Issue) {
	invoices := make([]Invoice, 0, len(records))
	var issues []Issue
	for idx, rec := range records {
		inv, recIssues := in.normalizeOne(idx, rec)
		for _, issue := range recIssues {
			in.logger.Warn("invoice intake issue",
				slog.Int("index", issue.Index),
				slog.String("id", issue.ID),
				slog.String("field", issue.Field),
				slog.String("message", issue.Message),
				slog.Bool("rejected", issue.Rejected),
			)
		}
		issues = append(issues, recIssues...)
		if inv == nil {
			continue
		}
		invoices = append(invoices, *inv)
	}
	return invoices, issues
}

func (in *Intake) normalizeOne(idx int, rec Record) (*Invoice, []Issue) {
	rec.ID = RecordID(strings.TrimSpace(string(rec.ID)))
	rec.Carrier = strings.TrimSpace(rec.Carrier)
	rec.DueDate = strings.TrimSpace(rec.DueDate)
	rec.ResponsibleParty = strings.TrimSpace(rec.ResponsibleParty)

	var issues []Issue
	report := func(field, msg string, rejected bool) {
		issues = append(issues, Issue{Index: idx, ID: string(rec.ID), Field: field, Message: msg, Rejected: rejected})
	}

	dueInvalid := false
	if err := in.validate.Struct(rec); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			report("record", err.Error(), true)
			return nil, issues
		}
		for _, fieldErr := range fieldErrs {
			switch fieldErr.Field() {
			case "transportadora":
				report("transportadora", "carrier is required", true)
			case "data_vencimento":
				dueInvalid = true
				report("data_vencimento", fmt.Sprintf("invalid due date %q, treated as absent", rec.DueDate), false)
			default:
				report(fieldErr.Field(), fieldErr.Error(), false)
			}
		}
		if rec.Carrier == "" {
			return nil, issues
		}
	}

	var due Date
	if !dueInvalid {
		parsed, err := ParseDate(rec.DueDate)
		if err != nil {
			report("data_vencimento", err.Error(), false)
		} else {
			due = parsed
		}
	}

	amount, msg := parseAmount(rec.Amount)
	if msg != "" {
		report("valor", msg, false)
	}

	id := string(rec.ID)
	if id == "" {
		id = in.newID()
	}

	party := rec.ResponsibleParty
	if party == "" && in.directory != nil {
		party, _ = in.directory.Lookup(rec.Carrier)
	}

	return &Invoice{
		ID:               id,
		Number:           strings.TrimSpace(rec.Number),
		Carrier:          rec.Carrier,
		ResponsibleParty: party,
		Amount:           amount,
		DueDate:          due,
		Status:           ParseStatus(rec.Status),
		Note:             rec.Note,
	}, issues
}

// parseAmount reads a number or numeric string, accepting both the pt-BR
// "1.234,56" and the en-US "1,234.56" notations. It returns zero and a
// message when the value cannot be used or its notation is ambiguous.
func parseAmount(raw json.RawMessage) (decimal.Decimal, string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, "amount missing, treated as zero"
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return decimal.Zero, "amount unparsable, treated as zero"
		}
	}
	text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "R$"))
	text, msg := canonicalAmount(text)
	if msg != "" {
		return decimal.Zero, msg
	}
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Sprintf("amount %q unparsable, treated as zero", text)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Sprintf("negative amount %s treated as zero", amount.String())
	}
	return amount, ""
}

// canonicalAmount rewrites grouped notations to a plain "1234.56". The last
// separator is the decimal mark when both appear; a lone comma is decimal
// unless exactly three digits follow it, which is ambiguous.
func canonicalAmount(text string) (string, string) {
	lastComma := strings.LastIndex(text, ",")
	lastDot := strings.LastIndex(text, ".")
	switch {
	case lastComma < 0 && strings.Count(text, ".") <= 1:
		return text, ""
	case lastComma < 0:
		// "1.234.567": pt-BR thousands only.
		if !groupedThousands(text, ".") {
			return "", fmt.Sprintf("amount %q unparsable, treated as zero", text)
		}
		return strings.ReplaceAll(text, ".", ""), ""
	case lastDot < 0 && strings.Count(text, ",") > 1:
		// "1,234,567": en-US thousands only.
		if !groupedThousands(text, ",") {
			return "", fmt.Sprintf("amount %q unparsable, treated as zero", text)
		}
		return strings.ReplaceAll(text, ",", ""), ""
	case lastDot < 0:
		if len(text)-lastComma-1 == 3 {
			return "", fmt.Sprintf("amount %q is ambiguous (thousands or decimal comma), treated as zero", text)
		}
		return strings.Replace(text, ",", ".", 1), ""
	case lastComma > lastDot:
		intPart := text[:lastComma]
		if strings.Contains(intPart, ",") || !groupedThousands(intPart, ".") {
			return "", fmt.Sprintf("amount %q unparsable, treated as zero", text)
		}
		return strings.ReplaceAll(intPart, ".", "") + "." + text[lastComma+1:], ""
	default:
		intPart := text[:lastDot]
		if strings.Contains(intPart, ".") || !groupedThousands(intPart, ",") {
			return "", fmt.Sprintf("amount %q unparsable, treated as zero", text)
		}
		return strings.ReplaceAll(intPart, ",", "") + text[lastDot:], ""
	}
}

// groupedThousands reports whether every group after the first, split on sep,
// has exactly three digits.
func groupedThousands(text, sep string) bool {
	groups := strings.Split(text, sep)
	for i, group := range groups {
		if i == 0 {
			if group == "" || group == "-" {
				return false
			}
			continue
		}
		if len(group) != 3 {
			return false
		}
	}
	return true
}
