package filestorage

import (
	"fmt"
)

type FileStorage interface {
	EnsureDir(path string) error
	// WriteFileIfAbsent 已存在同名文件时不覆盖，返回written=false
	WriteFileIfAbsent(path string, data []byte) (written bool, err error)
	Exists(path string) bool
}

// PersistenceError 磁盘写入失败
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
