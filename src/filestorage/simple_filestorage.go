package filestorage

import (
	"errors"
	"os"
	"path/filepath"
)

const tempPattern = ".sitemirror-*.tmp"

// SimpleFileStorage 先写入同目录下的临时文件，再通过hard link原子地落盘
// link在目标存在时失败，因此不会覆盖已有文件，也不会留下写了一半的文件
type SimpleFileStorage struct {
	perm os.FileMode
}

func NewSimpleFileStorage() FileStorage {
	return &SimpleFileStorage{
		perm: 0o644,
	}
}

func (s *SimpleFileStorage) EnsureDir(path string) error {
	if err := os.MkdirAll(path, os.ModePerm); err != nil && !os.IsExist(err) {
		return &PersistenceError{Path: path, Err: err}
	}
	return nil
}

func (s *SimpleFileStorage) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func (s *SimpleFileStorage) WriteFileIfAbsent(path string, data []byte) (bool, error) {
	if s.Exists(path) {
		return false, nil
	}

	dir := filepath.Dir(path)
	if err := s.EnsureDir(dir); err != nil {
		return false, err
	}

	tmp, err := s.writeTemp(dir, data)
	if err != nil {
		return false, &PersistenceError{Path: path, Err: err}
	}
	defer os.Remove(tmp)

	err = os.Link(tmp, path)
	switch {
	case err == nil:
		return true, nil
	case os.IsExist(err):
		return false, nil
	case errors.Is(err, os.ErrPermission) || isLinkUnsupported(err):
		// 不支持hard link的文件系统退化为检查后rename
		if s.Exists(path) {
			return false, nil
		}
		if err := os.Rename(tmp, path); err != nil {
			return false, &PersistenceError{Path: path, Err: err}
		}
		return true, nil
	default:
		return false, &PersistenceError{Path: path, Err: err}
	}
}

func (s *SimpleFileStorage) writeTemp(dir string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return "", err
	}
	name := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", err
	}
	if err := f.Chmod(s.perm); err != nil {
		f.Close()
		os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

func isLinkUnsupported(err error) bool {
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return false
	}
	return errors.Is(linkErr.Err, errors.ErrUnsupported)
}
