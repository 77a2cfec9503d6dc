package refdata

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexpos/admin/internal/platform/httpx"
)

func TestParseImportNormalisesRows(t *testing.T) {
	rows, err := ParseImport(strings.NewReader("kind,value\nBrand, Samsung \nunit,\nwarehouse,North Hub\n"))
	require.NoError(t, err)
	assert.Equal(t, []ImportRow{
		{Kind: "brand", Value: "Samsung"},
		{Kind: "warehouse", Value: "North Hub"},
	}, rows)
}

func TestParseImportRejectsFixedAndUnknownKinds(t *testing.T) {
	_, err := ParseImport(strings.NewReader("kind,value\nstatus,Archived\n"))
	require.ErrorIs(t, err, ErrFixedKind)
	assert.Contains(t, err.Error(), "line 2")

	_, err = ParseImport(strings.NewReader("kind,value\ncolour,Red\n"))
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestImportCountsInsertedRowsInOneTransaction(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	mock.ExpectExec("INSERT INTO ref_options").WithArgs("brand", "Samsung").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO ref_options").WithArgs("brand", "Apple").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectCommit()
	mock.ExpectRollback()

	added, err := Import(context.Background(), mock, []ImportRow{
		{Kind: "brand", Value: "Samsung"},
		{Kind: "brand", Value: "Apple"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
}

func TestImportRollsBackOnFailure(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	mock.ExpectExec("INSERT INTO ref_options").WithArgs("unit", "Box").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	added, err := Import(context.Background(), mock, []ImportRow{{Kind: "unit", Value: "Box"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `import unit "Box"`)
	assert.Zero(t, added)
}
