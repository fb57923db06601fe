package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jing2uo/finfo2db/database/clickhouse"
	"github.com/jing2uo/finfo2db/database/duckdb"
	"github.com/jing2uo/finfo2db/database/postgres"
	"github.com/jing2uo/finfo2db/model"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		typ     model.DBType
		dsn     string
		wantErr bool
	}{
		{uri: "/data/finfo.db", typ: model.DBTypeDuckDB, dsn: "/data/finfo.db"},
		{uri: "duckdb:///data/finfo.db", typ: model.DBTypeDuckDB, dsn: "/data/finfo.db"},
		{uri: "duckdb://finfo.db", typ: model.DBTypeDuckDB, dsn: "finfo.db"},
		{uri: "duckdb://", typ: model.DBTypeDuckDB, dsn: ""},
		{uri: "clickhouse://default@ch:9000/market", typ: model.DBTypeClickHouse, dsn: "clickhouse://default@ch:9000/market"},
		{uri: "postgres://etl:pw@pg:5432/market", typ: model.DBTypePostgres, dsn: "postgres://etl:pw@pg:5432/market"},
		{uri: "postgresql://pg/market", typ: model.DBTypePostgres, dsn: "postgresql://pg/market"},
		{uri: "mysql://db", wantErr: true},
		{uri: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			cfg, err := ParseURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.typ, cfg.Type)
			assert.Equal(t, tt.dsn, cfg.DSN)
		})
	}
}

func TestNewDB(t *testing.T) {
	db, err := NewDB("duckdb://", WithBatchSize(50))
	require.NoError(t, err)
	assert.IsType(t, &duckdb.DuckDBDriver{}, db)

	db, err = NewDB("clickhouse://ch:9000/market")
	require.NoError(t, err)
	assert.IsType(t, &clickhouse.ClickHouseDriver{}, db)

	db, err = NewDB("postgres://pg/market")
	require.NoError(t, err)
	assert.IsType(t, &postgres.PostgresDriver{}, db)

	_, err = NewDB("clickhouse:///market")
	assert.Error(t, err)
}
