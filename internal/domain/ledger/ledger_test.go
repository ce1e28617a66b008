package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miluim/internal/domain/importer"
)

func TestImportThenPartialPayment(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	ctx := context.Background()

	res := importRows(t, l, []map[string]any{
		{"name": "David Cohen", "date": "15.03.2025", "dept": "Ops"},
		{"name": "David Cohen", "date": "16.03.2025", "dept": "Ops"},
	}, ImportOptions{})
	assert.Equal(t, 2, res.RawRowCount)
	assert.Equal(t, 2, res.ClassifiedRowCount)
	assert.Equal(t, 1, res.DraftCount)
	assert.Equal(t, 1, res.ImportedEmployees)
	assert.Equal(t, 1, res.ImportedDuties)
	assert.Equal(t, 0, res.Skipped)

	employees := l.ListEmployees(EmployeeFilter{})
	require.Len(t, employees, 1)
	emp := employees[0]
	assert.Equal(t, "David Cohen", emp.FullName)
	assert.Equal(t, "Ops", emp.Department)
	assert.True(t, emp.DailyRate.Equal(dec("500")))

	periods := l.ListDutyPeriods(DutyFilter{EmployeeID: emp.ID})
	require.Len(t, periods, 1)
	period := periods[0]
	assert.Equal(t, 2025, period.Year)
	assert.Equal(t, 3, period.Month)
	assert.Equal(t, []string{"2025-03-15", "2025-03-16"}, period.Dates)
	assert.Equal(t, 2, period.TotalDays)
	assert.True(t, period.ExpectedAmount.Equal(dec("1000")))
	assert.Equal(t, StatusPending, period.PaymentStatus)

	_, err := l.AddPayment(ctx, PaymentInput{EmployeeID: emp.ID, DutyPeriodID: ptr(period.ID), Amount: dec("600"), PaymentDate: "2025-05-01"})
	require.NoError(t, err)

	view, err := l.GetDutyPeriod(period.ID)
	require.NoError(t, err)
	assert.True(t, view.TotalPaid.Equal(dec("600")))
	assert.True(t, view.Balance.Equal(dec("400")))
	assert.Equal(t, StatusPartial, view.PaymentStatus)
	assert.Equal(t, 1, view.Breakdown.Saturdays)
	assert.Equal(t, 1, view.Breakdown.Weekdays)
}

func TestReimportIsIdempotent(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	rows := []map[string]any{
		{"name": "Dana Levi", "date": "2025-04-01", "id": "123"},
		{"name": "Dana Levi", "date": "2025-04-02", "id": "123"},
		{"name": "Dana Levi", "date": "2025-05-07", "id": "123"},
	}
	first := importRows(t, l, rows, ImportOptions{})
	assert.Equal(t, 2, first.ImportedDuties)
	before := l.ListDutyPeriods(DutyFilter{})

	second := importRows(t, l, rows, ImportOptions{})
	assert.Equal(t, 0, second.ImportedEmployees)
	assert.Equal(t, 1, second.MatchedEmployees)
	assert.Equal(t, 0, second.ImportedDuties)
	assert.Equal(t, 0, second.MergedDuties)
	assert.Equal(t, 0, second.AddedDays)

	after := l.ListDutyPeriods(DutyFilter{})
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].TotalDays, after[i].TotalDays)
		assert.True(t, before[i].ExpectedAmount.Equal(after[i].ExpectedAmount))
	}

	overlap := importRows(t, l, []map[string]any{
		{"name": "Dana Levi", "date": "2025-04-02", "id": "123"},
		{"name": "Dana Levi", "date": "2025-04-03", "id": "123"},
	}, ImportOptions{})
	assert.Equal(t, 1, overlap.MergedDuties)
	assert.Equal(t, 1, overlap.AddedDays)
	april := l.ListDutyPeriods(DutyFilter{Year: 2025, Month: 4})
	require.Len(t, april, 1)
	assert.Equal(t, 3, april[0].TotalDays)
	assert.True(t, april[0].ExpectedAmount.Equal(dec("1500")))
}

func TestImportRowSkipIsolation(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	res := importRows(t, l, []map[string]any{
		{"name": "A B", "date": "01.01.2025"},
		{"name": "A B", "date": "02.01.2025"},
		{"name": "A B", "date": "32.01.2025"},
		{"name": "A B", "date": "03.01.2025"},
		{"name": "A B", "date": "04.01.2025"},
	}, ImportOptions{})
	assert.Equal(t, 5, res.RawRowCount)
	assert.Equal(t, 4, res.ClassifiedRowCount)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []string{"row 3: date is missing or not recognized"}, res.Errors)

	periods := l.ListDutyPeriods(DutyFilter{})
	require.Len(t, periods, 1)
	assert.Equal(t, []string{"2025-01-01", "2025-01-02", "2025-01-03", "2025-01-04"}, periods[0].Dates)
}

func TestImportEmptyAndUnclassifiableBatches(t *testing.T) {
	l, backend := newTestLedger(t, Options{})

	empty, err := l.ImportAttendance(context.Background(), importer.Table{}, importer.Columns{}, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Errors: []string{}}, empty)

	res := importRows(t, l, []map[string]any{{"name": "A", "date": "nope"}}, ImportOptions{})
	assert.Equal(t, 1, res.RawRowCount)
	assert.Equal(t, 0, res.ClassifiedRowCount)
	assert.Equal(t, 0, res.DraftCount)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, backend.saves)
}

func TestImportDryRunDoesNotPersist(t *testing.T) {
	l, backend := newTestLedger(t, Options{BackupBeforeImport: true})
	res := importRows(t, l, []map[string]any{{"name": "A B", "date": "2025-01-01"}}, ImportOptions{DryRun: true})
	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.ImportedEmployees)
	require.Len(t, res.Drafts, 1)
	assert.Equal(t, []string{"2025-01-01"}, res.Drafts[0].Dates)

	assert.Empty(t, l.ListEmployees(EmployeeFilter{}))
	assert.Equal(t, 0, backend.saves)
	assert.Empty(t, backend.backups)
}

func TestImportBacksUpNonEmptyLedger(t *testing.T) {
	l, backend := newTestLedger(t, Options{BackupBeforeImport: true})
	first := importRows(t, l, []map[string]any{{"name": "A B", "date": "2025-01-01"}}, ImportOptions{})
	assert.Empty(t, first.BackupLocation)

	second := importRows(t, l, []map[string]any{{"name": "A B", "date": "2025-01-02"}}, ImportOptions{})
	assert.Equal(t, "mem/pre-import", second.BackupLocation)
	assert.Equal(t, []string{"pre-import"}, backend.backups)
}

func TestImportRangeGrouping(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	res := importRows(t, l, []map[string]any{
		{"name": "Noa Bar", "date": "2025-03-30"},
		{"name": "Noa Bar", "date": "2025-03-31"},
		{"name": "Noa Bar", "date": "2025-04-01"},
		{"name": "Noa Bar", "date": "2025-04-10"},
	}, ImportOptions{Grouping: "range"})
	assert.Equal(t, 3, res.DraftCount)
	assert.Equal(t, 3, res.ImportedDuties)

	again := importRows(t, l, []map[string]any{
		{"name": "Noa Bar", "date": "2025-04-10"},
	}, ImportOptions{Grouping: "range"})
	assert.Equal(t, 0, again.ImportedDuties)
	assert.Len(t, l.ListDutyPeriods(DutyFilter{}), 3)
}

func TestDeleteEmployeeCascades(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	ctx := context.Background()
	importRows(t, l, []map[string]any{
		{"name": "A B", "date": "2025-01-01", "id": "1"},
		{"name": "A B", "date": "2025-02-01", "id": "1"},
		{"name": "C D", "date": "2025-01-01", "id": "2"},
	}, ImportOptions{})

	employees := l.ListEmployees(EmployeeFilter{})
	require.Len(t, employees, 2)
	target, other := employees[0], employees[1]
	for _, p := range l.ListDutyPeriods(DutyFilter{EmployeeID: target.ID}) {
		_, err := l.AddPayment(ctx, PaymentInput{EmployeeID: target.ID, DutyPeriodID: ptr(p.ID), Amount: dec("100"), PaymentDate: "2025-03-01"})
		require.NoError(t, err)
	}
	_, err := l.AddPayment(ctx, PaymentInput{EmployeeID: other.ID, Amount: dec("50"), PaymentDate: "2025-03-01"})
	require.NoError(t, err)

	res, err := l.DeleteEmployee(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, DeleteResult{DutyPeriods: 2, Payments: 2}, res)

	assert.Empty(t, l.ListDutyPeriods(DutyFilter{EmployeeID: target.ID}))
	assert.Empty(t, l.ListPayments(PaymentFilter{EmployeeID: target.ID}))
	assert.Len(t, l.ListPayments(PaymentFilter{}), 1)
	_, err = l.GetEmployee(target.ID)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)

	_, err = l.DeleteEmployee(ctx, target.ID)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}

func TestDeleteDutyPeriodCascadesToPayments(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	ctx := context.Background()
	emp, err := l.AddEmployee(ctx, EmployeeInput{FirstName: "Avi", LastName: "Ron"})
	require.NoError(t, err)
	added, err := l.AddDutyPeriods(ctx, DutyInput{EmployeeID: emp.ID, Dates: []string{"01.03.2025", "02.03.2025"}})
	require.NoError(t, err)
	require.Len(t, added, 1)
	periodID := added[0].DutyPeriod.ID

	_, err = l.AddPayment(ctx, PaymentInput{EmployeeID: emp.ID, DutyPeriodID: ptr(periodID), Amount: dec("400"), PaymentDate: "2025-04-01"})
	require.NoError(t, err)
	_, err = l.AddPayment(ctx, PaymentInput{EmployeeID: emp.ID, Amount: dec("10"), PaymentDate: "2025-04-01"})
	require.NoError(t, err)

	removed, err := l.DeleteDutyPeriod(ctx, periodID)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	payments := l.ListPayments(PaymentFilter{})
	require.Len(t, payments, 1)
	assert.Nil(t, payments[0].DutyPeriodID)
}

func TestPersistFailureLeavesMemoryUntouched(t *testing.T) {
	l, backend := newTestLedger(t, Options{})
	ctx := context.Background()
	emp, err := l.AddEmployee(ctx, EmployeeInput{FirstName: "Avi"})
	require.NoError(t, err)

	backend.setFail(true)
	_, err = l.AddEmployee(ctx, EmployeeInput{FirstName: "Beni"})
	require.ErrorIs(t, err, ErrPersist)
	_, err = l.DeleteEmployee(ctx, emp.ID)
	require.ErrorIs(t, err, ErrPersist)

	employees := l.ListEmployees(EmployeeFilter{})
	require.Len(t, employees, 1)
	assert.Equal(t, "Avi", employees[0].FirstName)

	backend.setFail(false)
	next, err := l.AddEmployee(ctx, EmployeeInput{FirstName: "Beni"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.ID)
}

func TestConcurrentPaymentsAreAllKept(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	ctx := context.Background()
	emp, err := l.AddEmployee(ctx, EmployeeInput{FirstName: "Avi"})
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.AddPayment(ctx, PaymentInput{EmployeeID: emp.ID, Amount: dec("10"), PaymentDate: "2025-01-01"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	payments := l.ListPayments(PaymentFilter{EmployeeID: emp.ID})
	require.Len(t, payments, n)
	seen := map[int64]bool{}
	for _, p := range payments {
		assert.False(t, seen[p.ID])
		seen[p.ID] = true
	}
	assert.True(t, l.ListEmployees(EmployeeFilter{})[0].TotalPaid.Equal(dec("500")))
}

func TestClosedLedgerRejectsMutations(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	_, err := l.AddEmployee(context.Background(), EmployeeInput{FirstName: "Avi"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCancelledContextIsNotQueued(t *testing.T) {
	l, backend := newTestLedger(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.AddEmployee(ctx, EmployeeInput{FirstName: "Avi"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, backend.saves)
}

func TestEmployeeValidationAndUniqueness(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	ctx := context.Background()

	_, err := l.AddEmployee(ctx, EmployeeInput{FirstName: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = l.AddEmployee(ctx, EmployeeInput{FirstName: "A", DailyRate: dec("-1")})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = l.AddEmployee(ctx, EmployeeInput{FirstName: "A", Status: "retired"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	first, err := l.AddEmployee(ctx, EmployeeInput{FirstName: "A", NationalID: "012345"})
	require.NoError(t, err)
	assert.Equal(t, "A", first.LastName)
	_, err = l.AddEmployee(ctx, EmployeeInput{FirstName: "B", NationalID: "12345"})
	assert.ErrorIs(t, err, ErrDuplicateNationalID)

	second, err := l.AddEmployee(ctx, EmployeeInput{FirstName: "B", NationalID: "999", DailyRate: dec("650")})
	require.NoError(t, err)
	assert.True(t, second.DailyRate.Equal(dec("650")))

	_, err = l.UpdateEmployee(ctx, second.ID, EmployeePatch{NationalID: ptr("12345")})
	assert.ErrorIs(t, err, ErrDuplicateNationalID)

	updated, err := l.UpdateEmployee(ctx, second.ID, EmployeePatch{Department: ptr(" R&D "), DailyRate: ptr(dec("700")), Status: ptr(EmployeeInactive)})
	require.NoError(t, err)
	assert.Equal(t, "R&D", updated.Department)
	assert.True(t, updated.DailyRate.Equal(dec("700")))
	assert.Equal(t, EmployeeInactive, updated.Status)

	_, err = l.UpdateEmployee(ctx, 99, EmployeePatch{})
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}

func TestDutyPeriodEdits(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	ctx := context.Background()
	emp, err := l.AddEmployee(ctx, EmployeeInput{FirstName: "Avi", DailyRate: dec("600")})
	require.NoError(t, err)

	added, err := l.AddDutyPeriods(ctx, DutyInput{EmployeeID: emp.ID, Dates: []string{"2025-03-31", "2025-04-01"}, Notes: "manual"})
	require.NoError(t, err)
	require.Len(t, added, 2)
	march := added[0].DutyPeriod
	assert.True(t, march.ExpectedAmount.Equal(dec("600")))
	assert.Equal(t, "manual", march.Notes)

	_, err = l.UpdateDutyPeriod(ctx, march.ID, DutyPatch{Dates: ptr([]string{"2025-03-01", "2025-04-02"})})
	assert.ErrorIs(t, err, ErrDateOutsidePeriod)
	_, err = l.UpdateDutyPeriod(ctx, march.ID, DutyPatch{Dates: ptr([]string{})})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = l.UpdateDutyPeriod(ctx, march.ID, DutyPatch{Dates: ptr([]string{"bad"})})
	assert.ErrorIs(t, err, ErrInvalidDate)

	updated, err := l.UpdateDutyPeriod(ctx, march.ID, DutyPatch{
		Dates:     ptr([]string{"03.03.2025", "01.03.2025", "2025-03-03"}),
		DailyRate: ptr(dec("700")),
		Status:    ptr(DutySubmitted),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-01", "2025-03-03"}, updated.Dates)
	assert.Equal(t, 2, updated.TotalDays)
	assert.True(t, updated.ExpectedAmount.Equal(dec("1400")))
	assert.Equal(t, DutySubmitted, updated.Status)

	ranged, err := l.AddDutyPeriods(ctx, DutyInput{EmployeeID: emp.ID, StartDate: "2025-05-30", EndDate: "2025-06-02", DailyRate: dec("800")})
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.Equal(t, "2025-05-30", ranged[0].DutyPeriod.StartDate)
	assert.Equal(t, "2025-05-31", ranged[0].DutyPeriod.EndDate)
	assert.True(t, ranged[1].DutyPeriod.ExpectedAmount.Equal(dec("1600")))

	_, err = l.AddDutyPeriods(ctx, DutyInput{EmployeeID: 42, Dates: []string{"2025-01-01"}})
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
	_, err = l.AddDutyPeriods(ctx, DutyInput{EmployeeID: emp.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPaymentValidation(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	ctx := context.Background()
	a, err := l.AddEmployee(ctx, EmployeeInput{FirstName: "A"})
	require.NoError(t, err)
	b, err := l.AddEmployee(ctx, EmployeeInput{FirstName: "B"})
	require.NoError(t, err)
	added, err := l.AddDutyPeriods(ctx, DutyInput{EmployeeID: a.ID, Dates: []string{"2025-01-01"}})
	require.NoError(t, err)
	periodID := added[0].DutyPeriod.ID

	_, err = l.AddPayment(ctx, PaymentInput{EmployeeID: a.ID, Amount: dec("0"), PaymentDate: "2025-01-01"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = l.AddPayment(ctx, PaymentInput{EmployeeID: a.ID, Amount: dec("1"), PaymentDate: "soon"})
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = l.AddPayment(ctx, PaymentInput{EmployeeID: 77, Amount: dec("1"), PaymentDate: "2025-01-01"})
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
	_, err = l.AddPayment(ctx, PaymentInput{EmployeeID: b.ID, DutyPeriodID: ptr(periodID), Amount: dec("1"), PaymentDate: "2025-01-01"})
	assert.ErrorIs(t, err, ErrPeriodEmployeeMismatch)
	_, err = l.AddPayment(ctx, PaymentInput{EmployeeID: a.ID, DutyPeriodID: ptr(int64(999)), Amount: dec("1"), PaymentDate: "2025-01-01"})
	assert.ErrorIs(t, err, ErrDutyPeriodNotFound)

	p, err := l.AddPayment(ctx, PaymentInput{EmployeeID: a.ID, Amount: dec("200"), PaymentDate: "15/02/2025", Reference: " BTL-1 "})
	require.NoError(t, err)
	assert.Equal(t, "2025-02-15", p.PaymentDate)
	assert.Equal(t, "BTL-1", p.Reference)
	assert.Equal(t, SourceManual, p.Source)

	dup, err := l.AddPayment(ctx, PaymentInput{EmployeeID: a.ID, Amount: dec("200"), PaymentDate: "15/02/2025", Reference: "BTL-1"})
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, dup.ID)

	moved, err := l.UpdatePayment(ctx, p.ID, PaymentPatch{DutyPeriodID: ptr(periodID), Amount: ptr(dec("500"))})
	require.NoError(t, err)
	require.NotNil(t, moved.DutyPeriodID)
	assert.Equal(t, periodID, *moved.DutyPeriodID)

	view, err := l.GetDutyPeriod(periodID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, view.PaymentStatus)
	assert.True(t, view.Balance.Equal(dec("0")))

	cleared, err := l.UpdatePayment(ctx, p.ID, PaymentPatch{ClearDutyPeriod: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.DutyPeriodID)

	require.NoError(t, l.DeletePayment(ctx, p.ID))
	assert.ErrorIs(t, l.DeletePayment(ctx, p.ID), ErrPaymentNotFound)
}

func TestResetBacksUpAndClears(t *testing.T) {
	l, backend := newTestLedger(t, Options{})
	ctx := context.Background()
	_, err := l.AddEmployee(ctx, EmployeeInput{FirstName: "A"})
	require.NoError(t, err)

	location, err := l.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mem/pre-reset", location)
	assert.Empty(t, l.ListEmployees(EmployeeFilter{}))
	assert.Equal(t, []string{"pre-reset"}, backend.backups)
}

func TestManualRangeMergesIntoMonthPeriod(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	ctx := context.Background()
	importRows(t, l, []map[string]any{{"name": "Avi Ron", "id": "42", "date": "01.03.2025"}}, ImportOptions{})
	employees := l.ListEmployees(EmployeeFilter{})
	require.Len(t, employees, 1)

	added, err := l.AddDutyPeriods(ctx, DutyInput{EmployeeID: employees[0].ID, StartDate: "2025-03-10", EndDate: "2025-03-12"})
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.False(t, added[0].Created)
	assert.Equal(t, 3, added[0].AddedDays)
	assert.Equal(t, importer.GroupByMonth, added[0].DutyPeriod.Grouping)

	again := importRows(t, l, []map[string]any{
		{"name": "Avi Ron", "id": "42", "date": "10.03.2025"},
		{"name": "Avi Ron", "id": "42", "date": "11.03.2025"},
	}, ImportOptions{})
	assert.Equal(t, 0, again.ImportedDuties)
	assert.Equal(t, 0, again.AddedDays)

	march := l.ListDutyPeriods(DutyFilter{Year: 2025, Month: 3})
	require.Len(t, march, 1)
	assert.Equal(t, []string{"2025-03-01", "2025-03-10", "2025-03-11", "2025-03-12"}, march[0].Dates)
	assert.Equal(t, 4, march[0].TotalDays)
	assert.True(t, march[0].ExpectedAmount.Equal(dec("2000")))
}

func TestManualRangeInRangeMode(t *testing.T) {
	l, _ := newTestLedger(t, Options{Grouping: importer.GroupByRange})
	ctx := context.Background()
	emp, err := l.AddEmployee(ctx, EmployeeInput{FirstName: "Noa", LastName: "Bar"})
	require.NoError(t, err)

	added, err := l.AddDutyPeriods(ctx, DutyInput{EmployeeID: emp.ID, StartDate: "2025-03-10", EndDate: "2025-03-12"})
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, importer.GroupByRange, added[0].DutyPeriod.Grouping)
	assert.Equal(t, "2025-03-10", added[0].DutyPeriod.StartDate)
	assert.Equal(t, "2025-03-12", added[0].DutyPeriod.EndDate)
}

func TestUnchangedImportSkipsBackupAndSave(t *testing.T) {
	l, backend := newTestLedger(t, Options{BackupBeforeImport: true})
	rows := []map[string]any{
		{"name": "Dana Levi", "id": "123", "date": "2025-04-01"},
		{"name": "Dana Levi", "id": "123", "date": "2025-04-02"},
	}
	importRows(t, l, rows, ImportOptions{})
	require.Equal(t, 1, backend.saves)

	replay := importRows(t, l, rows, ImportOptions{})
	assert.Empty(t, replay.BackupLocation)
	assert.Empty(t, backend.backups)
	assert.Equal(t, 1, backend.saves)

	skipped := importRows(t, l, []map[string]any{{"name": "Dana Levi", "id": "123", "date": "not a date"}}, ImportOptions{})
	assert.Equal(t, 1, skipped.Skipped)
	assert.Empty(t, backend.backups)
	assert.Equal(t, 1, backend.saves)

	filled := importRows(t, l, []map[string]any{{"name": "Dana Levi", "id": "123", "date": "2025-04-02", "dept": "Ops"}}, ImportOptions{})
	assert.Equal(t, "mem/pre-import", filled.BackupLocation)
	assert.Equal(t, 2, backend.saves)
	assert.Equal(t, "Ops", l.ListEmployees(EmployeeFilter{})[0].Department)
}
