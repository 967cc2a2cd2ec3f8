package lineage

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportstream/rs-acceptor/report"
	"github.com/reportstream/rs-acceptor/settings"
	"github.com/reportstream/rs-acceptor/types"
)

var submissionID = uuid.MustParse("3b241101-e2bb-4255-8caf-4136c566a962")

func newTestVerifier(t *testing.T) (*Verifier, sqlmock.Sqlmock, *bytes.Buffer) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	var out bytes.Buffer
	return NewVerifier(NewSQLStore(db), report.New(&out, log.New()), log.New()), mock, &out
}

func receiver(name string, timing, transport bool) settings.Receiver {
	r := settings.Receiver{Name: name, OrganizationName: "ignore"}
	if timing {
		r.Timing = &settings.Timing{Operation: "MERGE", NumberPerDay: 1440}
	}
	if transport {
		r.Transport = &settings.Transport{Type: "SFTP"}
	}
	return r
}

func countRows(n any) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

func TestStagesFor(t *testing.T) {
	assert.Equal(t, []types.Stage{types.StageReceive}, StagesFor(receiver("A", false, false)))
	assert.Equal(t, []types.Stage{types.StageReceive, types.StageBatch}, StagesFor(receiver("A", true, false)))
	assert.Equal(t, []types.Stage{types.StageReceive, types.StageSend}, StagesFor(receiver("A", false, true)))
	assert.Equal(t, []types.Stage{types.StageReceive, types.StageBatch, types.StageSend}, StagesFor(receiver("A", true, true)))
}

func TestExpectations(t *testing.T) {
	five := []settings.Receiver{
		receiver("A", false, false), receiver("B", false, false), receiver("C", false, false),
		receiver("D", false, false), receiver("E", false, false),
	}
	exps, err := Expectations(five, 25)
	require.NoError(t, err)
	require.Len(t, exps, 5)
	for _, e := range exps {
		assert.Equal(t, 5, e.Expected)
	}

	three := []settings.Receiver{receiver("A", true, true), receiver("B", false, false), receiver("C", false, false)}
	exps, err = Expectations(three, 7)
	require.NoError(t, err)
	require.Len(t, exps, 5)
	for _, e := range exps {
		assert.Equal(t, 2, e.Expected)
	}

	_, err = Expectations(nil, 7)
	assert.ErrorIs(t, err, ErrNoReceivers)
}

func TestVerifyPasses(t *testing.T) {
	v, mock, out := newTestVerifier(t)
	receivers := []settings.Receiver{receiver("CSV", true, true), receiver("HL7", false, false)}

	mock.ExpectBegin()
	mock.ExpectQuery(`item_descendants`).WithArgs("CSV", "receive", submissionID.String()).WillReturnRows(countRows(5))
	mock.ExpectQuery(`item_descendants`).WithArgs("CSV", "batch", submissionID.String()).WillReturnRows(countRows(5))
	mock.ExpectQuery(`item_descendants`).WithArgs("CSV", "send", submissionID.String()).WillReturnRows(countRows(5))
	mock.ExpectQuery(`item_descendants`).WithArgs("HL7", "receive", submissionID.String()).WillReturnRows(countRows(5))
	mock.ExpectCommit()

	ok, mismatches, err := v.Verify(context.Background(), submissionID, receivers, 10, VerifyOptions{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, mismatches)
	assert.Contains(t, out.String(), "Test passed: for ignore.CSV action send:  Expecting 5 item lineage records and got 5")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyReportsEveryMismatch(t *testing.T) {
	v, mock, out := newTestVerifier(t)
	receivers := []settings.Receiver{receiver("A", true, false), receiver("B", false, false), receiver("C", false, false)}

	mock.ExpectBegin()
	mock.ExpectQuery(`item_descendants`).WithArgs("A", "receive", submissionID.String()).WillReturnRows(countRows(2))
	mock.ExpectQuery(`item_descendants`).WithArgs("A", "batch", submissionID.String()).WillReturnRows(countRows(3))
	mock.ExpectQuery(`item_descendants`).WithArgs("B", "receive", submissionID.String()).WillReturnRows(countRows(nil))
	mock.ExpectQuery(`item_descendants`).WithArgs("C", "receive", submissionID.String()).WillReturnRows(countRows(2))
	mock.ExpectCommit()

	ok, mismatches, err := v.Verify(context.Background(), submissionID, receivers, 7, VerifyOptions{})
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, mismatches, 2)
	assert.Equal(t, "ignore.A", mismatches[0].Receiver)
	assert.Equal(t, types.StageBatch, mismatches[0].Stage)
	assert.Equal(t, 2, mismatches[0].Expected)
	require.NotNil(t, mismatches[0].Actual)
	assert.Equal(t, 3, *mismatches[0].Actual)
	assert.Nil(t, mismatches[1].Actual)
	assert.Equal(t, "ignore.B receive: expected 2 got null", mismatches[1].String())
	assert.Contains(t, out.String(), "*** TEST FAILED*** for ignore.B action receive:  Expecting 2 item lineage records but got null")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifySilentAndFilterByOrg(t *testing.T) {
	v, mock, out := newTestVerifier(t)
	r := settings.Receiver{Name: "elr", OrganizationName: "az-phd"}

	mock.ExpectBegin()
	mock.ExpectQuery(`receiving_org = \$2`).WithArgs("elr", "az-phd", "receive", submissionID.String()).WillReturnRows(countRows(0))
	mock.ExpectCommit()

	ok, mismatches, err := v.Verify(context.Background(), submissionID, []settings.Receiver{r}, 1, VerifyOptions{FilterByOrg: true, Silent: true})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, mismatches, 1)
	assert.Empty(t, out.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyIsIdempotent(t *testing.T) {
	v, mock, _ := newTestVerifier(t)
	receivers := []settings.Receiver{receiver("A", false, false), receiver("B", false, false)}

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery(`item_descendants`).WithArgs("A", "receive", submissionID.String()).WillReturnRows(countRows(4))
		mock.ExpectQuery(`item_descendants`).WithArgs("B", "receive", submissionID.String()).WillReturnRows(countRows(1))
		mock.ExpectCommit()
	}

	ok1, m1, err := v.Verify(context.Background(), submissionID, receivers, 8, VerifyOptions{Silent: true})
	require.NoError(t, err)
	ok2, m2, err := v.Verify(context.Background(), submissionID, receivers, 8, VerifyOptions{Silent: true})
	require.NoError(t, err)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, m1, m2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyNoReceivers(t *testing.T) {
	v, mock, _ := newTestVerifier(t)
	_, _, err := v.Verify(context.Background(), submissionID, nil, 10, VerifyOptions{})
	assert.ErrorIs(t, err, ErrNoReceivers)
	_, _, err = v.VerifyMerge(context.Background(), submissionID, nil, 5, 5)
	assert.ErrorIs(t, err, ErrNoReceivers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyQueryErrorRollsBack(t *testing.T) {
	v, mock, _ := newTestVerifier(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`item_descendants`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, _, err := v.Verify(context.Background(), submissionID, []settings.Receiver{receiver("A", false, false)}, 1, VerifyOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyMerge(t *testing.T) {
	v, mock, out := newTestVerifier(t)
	receivers := []settings.Receiver{receiver("CSV", true, true), receiver("HL7_BATCH", true, true), receiver("REDOX", true, false)}

	mock.ExpectBegin()
	mock.ExpectQuery(`report_descendants`).WithArgs("CSV", "batch", submissionID.String()).WillReturnRows(countRows(8))
	mock.ExpectQuery(`report_descendants`).WithArgs("CSV", "send", submissionID.String()).WillReturnRows(countRows(8))
	mock.ExpectQuery(`report_descendants`).WithArgs("HL7_BATCH", "batch", submissionID.String()).WillReturnRows(countRows(8))
	mock.ExpectQuery(`report_descendants`).WithArgs("HL7_BATCH", "send", submissionID.String()).WillReturnRows(countRows(8))
	mock.ExpectQuery(`report_descendants`).WithArgs("REDOX", "batch", submissionID.String()).WillReturnRows(countRows(7))
	mock.ExpectCommit()

	ok, mismatches, err := v.VerifyMerge(context.Background(), submissionID, receivers, 5, 5)
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, mismatches, 1)
	assert.Equal(t, 8, mismatches[0].Expected)
	assert.Contains(t, out.String(), "Expecting 8 sum(itemCount) but got 7")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUploadedFilename(t *testing.T) {
	v, mock, _ := newTestVerifier(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`find_sent_reports`).WithArgs(submissionID.String(), "HL7").
		WillReturnRows(sqlmock.NewRows([]string{"external_name"}).AddRow("hl7-ignore-20240101.hl7"))
	mock.ExpectCommit()
	name, err := v.UploadedFilename(context.Background(), submissionID, "HL7")
	require.NoError(t, err)
	require.NotNil(t, name)
	assert.Equal(t, "hl7-ignore-20240101.hl7", *name)

	mock.ExpectBegin()
	mock.ExpectQuery(`find_sent_reports`).WillReturnRows(sqlmock.NewRows([]string{"external_name"}))
	mock.ExpectCommit()
	name, err = v.UploadedFilename(context.Background(), submissionID, "HL7")
	require.NoError(t, err)
	assert.Nil(t, name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMostRecentAction(t *testing.T) {
	v, mock, _ := newTestVerifier(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`max\(action_id\)`).
		WillReturnRows(sqlmock.NewRows([]string{"action_id", "action_name", "created_at"}).AddRow(42, "send", created))
	mock.ExpectCommit()

	a, err := v.MostRecentAction(context.Background())
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, int64(42), a.ID)
	assert.Equal(t, "send", a.Name)
	assert.Equal(t, created, a.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizeURI(t *testing.T) {
	assert.Equal(t, "postgresql://localhost:5432/prime_data_hub", normalizeURI("jdbc:postgresql://localhost:5432/prime_data_hub"))
	assert.Equal(t, "postgres://db/x", normalizeURI("postgres://db/x"))
}
