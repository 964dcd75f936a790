package storage_test

import (
	"context"
	"database/sql"
	"errors"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/storage"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

// These specs exercise internal/storage's SQL against a mocked driver
// (github.com/DATA-DOG/go-sqlmock), asserting the exact statements issued
// rather than standing up a real database. The package's other tests
// (storage_test.go) cover end-to-end behavior against a real in-memory
// SQLite; these specs cover the statement-shape and error-propagation
// contracts a real backend would only fail on nondeterministically.
var _ = Describe("History against a mocked SQL driver", func() {
	var (
		mockDB  *sql.DB
		sqlMock sqlmock.Sqlmock
		ctx     context.Context
	)

	BeforeEach(func() {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		Expect(err).ToNot(HaveOccurred())
		mockDB = db
		sqlMock = mock
		ctx = context.Background()

		sqlMock.ExpectExec(`CREATE TABLE IF NOT EXISTS audit_reports`).WillReturnResult(sqlmock.NewResult(0, 0))
	})

	AfterEach(func() {
		Expect(sqlMock.ExpectationsWereMet()).To(Succeed())
		_ = mockDB.Close()
	})

	It("issues an upsert with the report's canonical fields on Record", func() {
		h, err := storage.OpenWithDB(mockDB)
		Expect(err).ToNot(HaveOccurred())

		sqlMock.ExpectExec(`INSERT INTO audit_reports`).
			WithArgs("corr-1", "doc-1", "job-sheet", string(audit.ResultPass), 92.0, "2026-01-01T00:00:00Z", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err = h.Record(ctx, "doc-1", "job-sheet", audit.AuditReport{
			CorrelationID: "corr-1",
			OverallResult: audit.ResultPass,
			Score:         92,
		}, "2026-01-01T00:00:00Z")
		Expect(err).ToNot(HaveOccurred())
	})

	It("wraps a driver error from Record without losing the cause", func() {
		h, err := storage.OpenWithDB(mockDB)
		Expect(err).ToNot(HaveOccurred())

		driverErr := errors.New("disk I/O error")
		sqlMock.ExpectExec(`INSERT INTO audit_reports`).WillReturnError(driverErr)

		err = h.Record(ctx, "doc-2", "job-sheet", audit.AuditReport{CorrelationID: "corr-2"}, "2026-01-02T00:00:00Z")
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, driverErr)).To(BeTrue())
	})

	It("adds both filter predicates to the query only when both are supplied", func() {
		h, err := storage.OpenWithDB(mockDB)
		Expect(err).ToNot(HaveOccurred())

		rows := sqlmock.NewRows([]string{"data"})
		sqlMock.ExpectQuery(`SELECT data FROM audit_reports WHERE 1=1 AND template_id = \? AND overall_result = \? ORDER BY recorded_at DESC LIMIT \?`).
			WithArgs("job-sheet", string(audit.ResultReviewQueue), 50).
			WillReturnRows(rows)

		_, err = h.Query(ctx, "job-sheet", audit.ResultReviewQueue, 0)
		Expect(err).ToNot(HaveOccurred())
	})
})
