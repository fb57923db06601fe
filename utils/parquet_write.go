package utils

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
)

type ParquetWriter[T any] struct {
	file   *os.File
	writer *parquet.GenericWriter[T]
	rows   int
}

// NewParquetWriter 默认 Snappy 压缩, options 追加在默认配置之后
func NewParquetWriter[T any](filename string, options ...parquet.WriterOption) (*ParquetWriter[T], error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	opts := []parquet.WriterOption{
		parquet.Compression(&parquet.Snappy),
		parquet.PageBufferSize(64 * 1024),
	}
	opts = append(opts, options...)

	return &ParquetWriter[T]{
		file:   f,
		writer: parquet.NewGenericWriter[T](f, opts...),
	}, nil
}

func (p *ParquetWriter[T]) Write(data []T) error {
	n, err := p.writer.Write(data)
	p.rows += n
	if err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	return nil
}

// Rows 已写入的行数
func (p *ParquetWriter[T]) Rows() int { return p.rows }

// Close 先写 footer 再关闭文件
func (p *ParquetWriter[T]) Close() error {
	if err := p.writer.Close(); err != nil {
		p.file.Close()
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	if err := p.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}
