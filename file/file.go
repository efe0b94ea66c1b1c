package file

import (
	"crypto/md5"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmbuild/common"
)

// PathExists reports whether path exists. Errors other than "not exist"
// are returned.
func PathExists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, "failed to stat %s", path)
}

// IsDir checks if the given path is a directory. A missing path is not.
func IsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "failed to stat %s", path)
	}
	return info.IsDir(), nil
}

// CreateDir creates a directory and its parents with common.FileMode0755.
func CreateDir(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return nil
		}
		return errors.Errorf("path %s exists but is not a directory", path)
	}
	if !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to check directory %s", path)
	}
	return errors.Wrapf(os.MkdirAll(path, common.FileMode0755), "failed to create directory %s", path)
}

// CreateFileDir ensures the parent directory of filePath exists.
func CreateFileDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if dir == "." || dir == "" {
		return nil
	}
	return CreateDir(dir)
}

// WriteFile writes content to a file, creating parent directories if necessary.
func WriteFile(filePath string, content []byte, perm fs.FileMode) error {
	if err := CreateFileDir(filePath); err != nil {
		return err
	}
	if perm == 0 {
		perm = common.FileMode0644
	}
	return errors.Wrapf(os.WriteFile(filePath, content, perm), "failed to write file %s", filePath)
}

// Snapshot is the prior state of a file, captured so that it can be restored.
type Snapshot struct {
	Path    string
	Existed bool
	Content []byte
	Mode    fs.FileMode
}

// Capture records the current state of filePath.
func Capture(filePath string) (*Snapshot, error) {
	s := &Snapshot{Path: filePath}
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %s", filePath)
	}
	if info.IsDir() {
		return nil, errors.Errorf("%s is a directory", filePath)
	}
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", filePath)
	}
	s.Existed, s.Content, s.Mode = true, content, info.Mode().Perm()
	return s, nil
}

// Restore puts the file back into its captured state.
func (s *Snapshot) Restore() error {
	if !s.Existed {
		return Remove(s.Path)
	}
	return WriteFile(s.Path, s.Content, s.Mode)
}

// Remove deletes path and anything below it. A missing path is not an error.
func Remove(path string) error {
	if path == "" || path == "/" {
		return errors.Errorf("refusing to remove %q", path)
	}
	return errors.Wrapf(os.RemoveAll(path), "failed to remove %s", path)
}

// Move renames src to dst, falling back to copy and remove when they are on
// different devices.
func Move(src, dst string) error {
	if err := CreateFileDir(dst); err != nil {
		return err
	}
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return errors.Wrapf(err, "failed to move %s to %s", src, dst)
	}
	if err := Copy(src, dst); err != nil {
		return err
	}
	return Remove(src)
}

// Copy copies a file or a directory tree from src to dst, keeping modes.
func Copy(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return errors.Wrapf(err, "failed to stat %s", src)
	}
	if !info.IsDir() {
		return copyFile(src, dst, info.Mode())
	}
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|common.FileMode0700)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return copyFile(p, target, info.Mode())
		}
	})
}

func copyFile(src, dst string, mode fs.FileMode) error {
	if err := CreateFileDir(dst); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "failed to copy %s to %s", src, dst)
	}
	return errors.Wrapf(out.Close(), "failed to close %s", dst)
}

// FileMD5 calculates the MD5 checksum of a file.
func FileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open file %s", path)
	}
	defer f.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", errors.Wrapf(err, "failed to hash %s", path)
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

// MkdirAll creates path and any missing parents. It returns the topmost
// directory it created, or "" when path already existed, so that callers
// can undo exactly what they made.
func MkdirAll(path string, perm fs.FileMode) (string, error) {
	path = filepath.Clean(path)
	created := ""
	for p := path; ; p = filepath.Dir(p) {
		exists, err := PathExists(p)
		if err != nil {
			return "", err
		}
		if exists {
			break
		}
		created = p
		if parent := filepath.Dir(p); parent == p {
			break
		}
	}
	if perm == 0 {
		perm = common.FileMode0755
	}
	if err := os.MkdirAll(path, perm); err != nil {
		return "", errors.Wrapf(err, "failed to create directory %s", path)
	}
	return created, nil
}
