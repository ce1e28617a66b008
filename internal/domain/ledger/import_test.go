package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miluim/internal/domain/importer"
)

func importPayments(t *testing.T, l *Ledger, rows []map[string]any, opts PaymentImportOptions) PaymentImportResult {
	t.Helper()
	table := importer.TableFromMaps(rows)
	cols, err := l.Vocabulary().Resolve(table.Headers, importer.KindPayment)
	require.NoError(t, err)
	res, err := l.ImportPayments(context.Background(), table, cols, opts)
	require.NoError(t, err)
	return res
}

func paymentRow(id, name, amount, paid, service string) map[string]any {
	return map[string]any{
		"ת.ז.":        id,
		"שם":          name,
		"סכום":        amount,
		"תאריך תשלום": paid,
		"תאריך שרות":  service,
	}
}

func TestImportPaymentsMatchesAndAttributes(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	importRows(t, l, []map[string]any{
		{"name": "Dana Levi", "id": "123", "date": "2025-04-01"},
		{"name": "Dana Levi", "id": "123", "date": "2025-04-02"},
		{"name": "Avi Ron", "id": "", "date": "2025-05-10"},
	}, ImportOptions{})

	res := importPayments(t, l, []map[string]any{
		paymentRow("0123", "Dana Levi", "1,000", "10.05.2025", "01.04.2025"),
		paymentRow("", "Ron Avi", "300", "2025-06-01", "2025-05-20"),
		paymentRow("555", "Nobody Here", "10", "2025-06-01", ""),
		paymentRow("555", "Nobody Here", "20", "2025-06-02", ""),
		paymentRow("", "Avi Ron", "0", "2025-06-01", ""),
		paymentRow("777", "Avi Ron", "50", "2025-06-03", ""),
	}, PaymentImportOptions{})

	assert.Equal(t, 6, res.RawRowCount)
	assert.Equal(t, 5, res.ClassifiedRowCount)
	assert.Equal(t, 3, res.ImportedPayments)
	assert.Equal(t, 2, res.AttributedPayments)
	assert.Equal(t, 1, res.UnattributedPayments)
	assert.Equal(t, []string{"555 Nobody Here"}, res.Unmatched)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []string{"row 5: amount is missing or not positive"}, res.Errors)

	april := l.ListDutyPeriods(DutyFilter{Year: 2025, Month: 4})
	require.Len(t, april, 1)
	assert.True(t, april[0].TotalPaid.Equal(dec("1000")))
	assert.Equal(t, StatusPaid, april[0].PaymentStatus)

	may := l.ListDutyPeriods(DutyFilter{Year: 2025, Month: 5})
	require.Len(t, may, 1)
	assert.True(t, may[0].TotalPaid.Equal(dec("300")))
	assert.Equal(t, StatusPartial, may[0].PaymentStatus)
	assert.Equal(t, "777", may[0].NationalID)

	for _, p := range l.ListPayments(PaymentFilter{}) {
		assert.Equal(t, SourceImport, p.Source)
	}
}

func TestImportPaymentsFallbackDateAndDryRun(t *testing.T) {
	l, backend := newTestLedger(t, Options{})
	ctx := context.Background()
	_, err := l.AddEmployee(ctx, EmployeeInput{FirstName: "Dana", LastName: "Levi", NationalID: "123"})
	require.NoError(t, err)
	saves := backend.saves

	rows := []map[string]any{
		{"id": "123", "amount": "250"},
		{"id": "123", "amount": "125.50"},
	}
	table := importer.TableFromMaps(rows)
	cols, err := l.Vocabulary().Resolve(table.Headers, importer.KindPayment)
	require.NoError(t, err)

	res, err := l.ImportPayments(ctx, table, cols, PaymentImportOptions{FallbackDate: "2025-07-01", DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.ImportedPayments)
	assert.Empty(t, l.ListPayments(PaymentFilter{}))
	assert.Equal(t, saves, backend.saves)

	res, err = l.ImportPayments(ctx, table, cols, PaymentImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ImportedPayments)
	assert.Equal(t, 2, res.Skipped)

	res, err = l.ImportPayments(ctx, table, cols, PaymentImportOptions{FallbackDate: "01.07.2025"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.ImportedPayments)
	payments := l.ListPayments(PaymentFilter{})
	require.Len(t, payments, 2)
	for _, p := range payments {
		assert.Equal(t, "2025-07-01", p.PaymentDate)
		assert.Nil(t, p.DutyPeriodID)
	}
}

func TestStrictIdentityRejectsNameOnlyPayments(t *testing.T) {
	l, _ := newTestLedger(t, Options{StrictNameIdentity: true})
	ctx := context.Background()
	_, err := l.AddEmployee(ctx, EmployeeInput{FirstName: "Avi", LastName: "Ron"})
	require.NoError(t, err)
	_, err = l.AddEmployee(ctx, EmployeeInput{FirstName: "Dana", LastName: "Levi", NationalID: "123"})
	require.NoError(t, err)

	res := importPayments(t, l, []map[string]any{
		paymentRow("", "Avi Ron", "100", "2025-01-01", ""),
		paymentRow("123", "Dana Levi", "100", "2025-01-01", ""),
	}, PaymentImportOptions{})
	assert.Equal(t, 1, res.ImportedPayments)
	assert.Equal(t, []string{"Avi Ron"}, res.Unmatched)
}

func TestStrictIdentityCreatesSeparateEmployees(t *testing.T) {
	l, _ := newTestLedger(t, Options{StrictNameIdentity: true})
	importRows(t, l, []map[string]any{
		{"name": "Avi Ron", "date": "2025-01-01"},
		{"name": "Avi Ron", "date": "2025-01-02"},
	}, ImportOptions{})
	require.Len(t, l.ListEmployees(EmployeeFilter{}), 1)

	res := importRows(t, l, []map[string]any{
		{"name": "Avi Ron", "date": "2025-01-03"},
	}, ImportOptions{})
	assert.Equal(t, 1, res.ImportedEmployees)
	assert.Len(t, l.ListEmployees(EmployeeFilter{}), 2)
}
