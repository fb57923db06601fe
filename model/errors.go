package model

import "fmt"

// FetchError 网络层失败: 超时、连接错误或非 2xx 状态码
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError 响应体不是合法 JSON, 缺少 data 数组, 或单条记录无法解析
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("parse payload field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("parse payload: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError 存储层失败, Op 标识具体操作
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
