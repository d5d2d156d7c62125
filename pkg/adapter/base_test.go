package adapter

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/leapschema/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columnsHeader = []string{
	"column_name", "data_type", "character_maximum_length",
	"numeric_precision", "numeric_scale", "ordinal_position",
}

func int64p(v int64) *int64 { return &v }

func TestBaseSQLAdapter_Close(t *testing.T) {
	tests := []struct {
		name    string
		setupDB bool
	}{
		{name: "close with nil DB", setupDB: false},
		{name: "close with open DB", setupDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.DB = db
			}

			assert.NoError(t, base.Close())
			assert.False(t, base.IsConnected())
		})
	}
}

func TestColumnsQuery(t *testing.T) {
	tests := []struct {
		name        string
		loc         core.TableLocation
		placeholder func(int) string
		wantWhere   string
		wantArgs    []any
	}{
		{
			name:        "table only",
			loc:         core.TableLocation{Table: "orders"},
			placeholder: QuestionPlaceholder,
			wantWhere:   "WHERE table_name = ?\n",
			wantArgs:    []any{"orders"},
		},
		{
			name:        "fully qualified with dollar placeholders",
			loc:         core.TableLocation{Database: "analytics", Schema: "public", Table: "orders"},
			placeholder: DollarPlaceholder,
			wantWhere:   "WHERE table_name = $1 AND table_schema = $2 AND table_catalog = $3\n",
			wantArgs:    []any{"orders", "public", "analytics"},
		},
		{
			name:        "catalog without schema",
			loc:         core.TableLocation{Database: "dev", Table: "orders"},
			placeholder: DollarPlaceholder,
			wantWhere:   "WHERE table_name = $1 AND table_catalog = $2\n",
			wantArgs:    []any{"orders", "dev"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := ColumnsQuery(tt.loc, tt.placeholder)
			assert.Contains(t, query, tt.wantWhere)
			assert.Contains(t, query, "ORDER BY ordinal_position")
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBaseSQLAdapter_FetchColumnsCommon(t *testing.T) {
	loc := core.TableLocation{Database: "db", Schema: "main", Table: "orders"}
	query, args := ColumnsQuery(loc, QuestionPlaceholder)

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		want      []core.ColumnMetadata
		wantErr   error
		errMsg    string
	}{
		{
			name: "columns in catalog order with normalized types",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(query)).
					WithArgs("orders", "main", "db").
					WillReturnRows(sqlmock.NewRows(columnsHeader).
						AddRow("id", "INTEGER", nil, 32, 0, 1).
						AddRow("order_total", "DECIMAL(10,2)", nil, 10, 2, 2).
						AddRow("status", "VARCHAR(20)", nil, nil, nil, 3))
			},
			want: []core.ColumnMetadata{
				{Name: "id", DataType: "INTEGER", NumericPrecision: int64p(32), NumericScale: int64p(0), Position: 1},
				{Name: "order_total", DataType: "DECIMAL", NumericPrecision: int64p(10), NumericScale: int64p(2), Position: 2},
				{Name: "status", DataType: "VARCHAR", CharMaxLength: int64p(20), Position: 3},
			},
		},
		{
			name: "no rows is table not found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(query)).
					WillReturnRows(sqlmock.NewRows(columnsHeader))
			},
			wantErr: ErrTableNotFound,
		},
		{
			name: "query failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(query)).WillReturnError(assert.AnError)
			},
			wantErr: assert.AnError,
			errMsg:  "failed to query column metadata",
		},
		{
			name: "scan failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(query)).
					WillReturnRows(sqlmock.NewRows(columnsHeader).
						AddRow("id", "INTEGER", nil, nil, nil, "not-a-number"))
			},
			errMsg: "failed to scan column metadata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()
			tt.setupMock(mock)

			base := &BaseSQLAdapter{DB: db}
			got, err := base.FetchColumnsCommon(context.Background(), loc, query, args...)

			if tt.wantErr != nil || tt.errMsg != "" {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBaseSQLAdapter_FetchColumnsNotConnected(t *testing.T) {
	base := &BaseSQLAdapter{}
	_, err := base.FetchColumnsCommon(context.Background(), core.TableLocation{Table: "t"}, "SELECT 1")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSplitDataType(t *testing.T) {
	tests := []struct {
		in         string
		wantBase   string
		wantFirst  *int64
		wantSecond *int64
	}{
		{in: "INTEGER", wantBase: "INTEGER"},
		{in: "DECIMAL(10,2)", wantBase: "DECIMAL", wantFirst: int64p(10), wantSecond: int64p(2)},
		{in: "numeric( 18 , 4 )", wantBase: "numeric", wantFirst: int64p(18), wantSecond: int64p(4)},
		{in: "VARCHAR(255)", wantBase: "VARCHAR", wantFirst: int64p(255)},
		{in: "character varying(64)", wantBase: "character varying", wantFirst: int64p(64)},
		{in: "STRUCT(a INTEGER)", wantBase: "STRUCT(a INTEGER)"},
		{in: "DECIMAL(p,s)", wantBase: "DECIMAL(p,s)"},
		{in: "(10)", wantBase: "(10)"},
		{in: " TEXT ", wantBase: "TEXT"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			base, first, second := SplitDataType(tt.in)
			assert.Equal(t, tt.wantBase, base)
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantSecond, second)
		})
	}
}

func TestNormalizeColumn(t *testing.T) {
	tests := []struct {
		name string
		in   core.ColumnMetadata
		want core.ColumnMetadata
	}{
		{
			name: "fills precision and scale from type text",
			in:   core.ColumnMetadata{Name: "amount", DataType: "DECIMAL(10,2)"},
			want: core.ColumnMetadata{Name: "amount", DataType: "DECIMAL", NumericPrecision: int64p(10), NumericScale: int64p(2)},
		},
		{
			name: "catalog values win over type text",
			in:   core.ColumnMetadata{Name: "amount", DataType: "NUMERIC(12,3)", NumericPrecision: int64p(12), NumericScale: int64p(1)},
			want: core.ColumnMetadata{Name: "amount", DataType: "NUMERIC", NumericPrecision: int64p(12), NumericScale: int64p(1)},
		},
		{
			name: "character length",
			in:   core.ColumnMetadata{Name: "code", DataType: "CHAR(3)"},
			want: core.ColumnMetadata{Name: "code", DataType: "CHAR", CharMaxLength: int64p(3)},
		},
		{
			name: "no parameters",
			in:   core.ColumnMetadata{Name: "id", DataType: "BIGINT"},
			want: core.ColumnMetadata{Name: "id", DataType: "BIGINT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeColumn(tt.in))
		})
	}
}
