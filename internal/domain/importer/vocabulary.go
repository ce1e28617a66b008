package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// Field is a semantic column of an imported sheet.
type Field string

const (
	FieldFullName    Field = "fullName"
	FieldFirstName   Field = "firstName"
	FieldLastName    Field = "lastName"
	FieldNationalID  Field = "nationalId"
	FieldDate        Field = "date"
	FieldStartDate   Field = "startDate"
	FieldEndDate     Field = "endDate"
	FieldDepartment  Field = "department"
	FieldDailyRate   Field = "dailyRate"
	FieldDutyFlag    Field = "dutyFlag"
	FieldAmount      Field = "amount"
	FieldPaymentDate Field = "paymentDate"
	FieldReference   Field = "reference"
	FieldNotes       Field = "notes"
)

// Kind selects which fields a sheet must carry.
type Kind string

const (
	KindAttendance Kind = "attendance"
	KindPayment    Kind = "payment"
)

// resolveOrder lists fields from most to least specific so that a broad
// keyword such as "date" cannot claim "payment date".
var resolveOrder = []Field{
	FieldPaymentDate,
	FieldEndDate,
	FieldStartDate,
	FieldDate,
	FieldFirstName,
	FieldLastName,
	FieldNationalID,
	FieldFullName,
	FieldDepartment,
	FieldDailyRate,
	FieldDutyFlag,
	FieldAmount,
	FieldReference,
	FieldNotes,
}

// minContainsRunes keeps short keywords such as "id" or "שם" to exact matches.
const minContainsRunes = 4

// Vocabulary maps each field to the header texts that may carry it.
type Vocabulary map[Field][]string

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		FieldPaymentDate: {"תאריך תשלום", "מועד תשלום", "payment date", "payment_date", "paid on"},
		FieldEndDate:     {"תאריך סיום שרות", "תאריך סיום שירות", "תאריך סיום", "עד תאריך", "end date", "end_date", "to date"},
		FieldStartDate:   {"תאריך שרות", "תאריך שירות", "תאריך התחלה", "מתאריך", "start date", "start_date", "from date", "service date"},
		FieldDate:        {"תאריך", "date", "duty date", "duty_date", "יום"},
		FieldFirstName:   {"שם פרטי", "first name", "first_name", "firstname"},
		FieldLastName:    {"שם משפחה", "last name", "last_name", "lastname", "surname"},
		FieldNationalID:  {"ת.ז.", "ת.ז", "ת\"ז", "תז", "תעודת זהות", "מספר זהות", "זהות", "tz", "national id", "national_id", "nationalid", "id number", "id"},
		FieldFullName:    {"שם עובד", "שם מלא", "שם", "employee name", "full name", "full_name", "name"},
		FieldDepartment:  {"מחלקה", "department", "dept"},
		FieldDailyRate:   {"תעריף יומי", "תעריף", "daily rate", "daily_rate", "rate"},
		FieldDutyFlag:    {"מילואים", "reserve duty", "miluim", "is_duty", "duty"},
		FieldAmount:      {"תגמול", "סכום", "amount", "payment amount", "paid"},
		FieldReference:   {"אסמכתא", "מספר אסמכתא", "reference", "ref"},
		FieldNotes:       {"הערות", "סוג תביעה", "notes", "note", "comment"},
	}
}

// LoadVocabulary reads a JSON object of field to keyword list from path and
// lays it over the defaults. Fields absent from the file keep their defaults.
func LoadVocabulary(path string) (Vocabulary, error) {
	vocab := DefaultVocabulary()
	if strings.TrimSpace(path) == "" {
		return vocab, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	var overrides map[Field][]string
	if err := json.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVocabulary, err)
	}
	for field, keywords := range overrides {
		vocab[field] = keywords
	}
	if err := vocab.Validate(); err != nil {
		return nil, err
	}
	return vocab, nil
}

func (v Vocabulary) Validate() error {
	known := make(map[Field]bool, len(resolveOrder))
	for _, f := range resolveOrder {
		known[f] = true
	}
	for field, keywords := range v {
		if !known[field] {
			return fmt.Errorf("%w: unknown field %q", ErrVocabulary, field)
		}
		for _, kw := range keywords {
			if normalizeHeader(kw) == "" {
				return fmt.Errorf("%w: empty keyword for %q", ErrVocabulary, field)
			}
		}
	}
	return nil
}

// Columns is the resolved header for each field of one sheet.
type Columns struct {
	headers map[Field]string
}

func (c Columns) Has(f Field) bool {
	_, ok := c.headers[f]
	return ok
}

func (c Columns) Header(f Field) string {
	return c.headers[f]
}

// Mapping returns a copy of the field to header assignment.
func (c Columns) Mapping() map[Field]string {
	out := make(map[Field]string, len(c.headers))
	for k, v := range c.headers {
		out[k] = v
	}
	return out
}

func (c Columns) value(row Row, f Field) any {
	header, ok := c.headers[f]
	if !ok {
		return nil
	}
	return row.Values[header]
}

// Resolve assigns headers to fields. Exact matches are tried before
// substring matches, and a header is used for at most one field.
func (v Vocabulary) Resolve(headers []string, kind Kind) (Columns, error) {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}
	used := make([]bool, len(headers))
	cols := Columns{headers: map[Field]string{}}

	claim := func(field Field, match func(header, keyword string) bool) {
		if cols.Has(field) {
			return
		}
		for _, kw := range v[field] {
			keyword := normalizeHeader(kw)
			for i, header := range normalized {
				if used[i] || header == "" || !match(header, keyword) {
					continue
				}
				used[i] = true
				cols.headers[field] = headers[i]
				return
			}
		}
	}

	for _, field := range resolveOrder {
		claim(field, func(header, keyword string) bool { return header == keyword })
	}
	for _, field := range resolveOrder {
		claim(field, func(header, keyword string) bool {
			return utf8.RuneCountInString(keyword) >= minContainsRunes && strings.Contains(header, keyword)
		})
	}

	if missing := cols.missing(kind); len(missing) > 0 {
		return cols, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return cols, nil
}

func (c Columns) missing(kind Kind) []string {
	var out []string
	switch kind {
	case KindPayment:
		if !c.Has(FieldNationalID) && !c.Has(FieldFullName) && !c.Has(FieldFirstName) {
			out = append(out, "national id or name")
		}
		if !c.Has(FieldAmount) {
			out = append(out, string(FieldAmount))
		}
	default:
		if !c.Has(FieldFullName) && !c.Has(FieldFirstName) {
			out = append(out, string(FieldFullName))
		}
		if !c.Has(FieldDate) && !c.Has(FieldStartDate) {
			out = append(out, string(FieldDate))
		}
	}
	return out
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}
