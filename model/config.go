package model

type DBType string

const (
	DBTypeDuckDB     DBType = "duckdb"
	DBTypeClickHouse DBType = "clickhouse"
	DBTypePostgres   DBType = "postgres"
)

const DefaultBatchSize = 500

type DBConfig struct {
	Type      DBType
	DSN       string
	BatchSize int
}

// ChunkSize 返回单条 INSERT 的最大行数
func (c DBConfig) ChunkSize() int {
	if c.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return c.BatchSize
}
