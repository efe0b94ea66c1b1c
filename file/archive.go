package file

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmbuild/common"
)

// Tar archives srcPath (file or directory) into a gzipped tarball at
// dstTarball. Entries are named relative to the parent of srcPath, so the
// archive has srcPath's base name as its single top-level entry.
func Tar(srcPath, dstTarball string) (err error) {
	if err := CreateFileDir(dstTarball); err != nil {
		return err
	}
	fw, err := os.Create(dstTarball)
	if err != nil {
		return errors.Wrapf(err, "failed to create destination tarball %s", dstTarball)
	}
	gw := gzip.NewWriter(fw)
	tw := tar.NewWriter(gw)
	defer func() {
		for _, c := range []io.Closer{tw, gw, fw} {
			if cerr := c.Close(); err == nil && cerr != nil {
				err = errors.Wrapf(cerr, "failed to finish tarball %s", dstTarball)
			}
		}
	}()

	srcPath = filepath.Clean(srcPath)
	root := filepath.Dir(srcPath)

	return filepath.WalkDir(srcPath, func(current string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return errors.Wrapf(walkErr, "error accessing path %s during tar", current)
		}
		info, err := d.Info()
		if err != nil {
			return errors.Wrapf(err, "failed to get FileInfo for %s", current)
		}
		link := ""
		if d.Type()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(current); err != nil {
				return errors.Wrapf(err, "failed to read symlink %s", current)
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return errors.Wrapf(err, "failed to create tar header for %s", current)
		}
		rel, err := filepath.Rel(root, current)
		if err != nil {
			return errors.Wrapf(err, "failed to name %s in archive", current)
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return errors.Wrapf(err, "failed to write tar header for %s", current)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		f, err := os.Open(current)
		if err != nil {
			return errors.Wrapf(err, "failed to open file %s for tarring", current)
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return errors.Wrapf(err, "failed to copy content of %s to tar archive", current)
	})
}

// Untar extracts a gzipped tarball into dstDir. Entries escaping dstDir are
// rejected.
func Untar(srcTarball, dstDir string) error {
	fr, err := os.Open(srcTarball)
	if err != nil {
		return errors.Wrapf(err, "failed to open source tarball %s", srcTarball)
	}
	defer fr.Close()

	gr, err := gzip.NewReader(fr)
	if err != nil {
		return errors.Wrapf(err, "failed to create gzip reader for %s", srcTarball)
	}
	defer gr.Close()

	dstDir = filepath.Clean(dstDir)
	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "error reading tar header from %s", srcTarball)
		}

		target := filepath.Join(dstDir, hdr.Name)
		if target != dstDir && !strings.HasPrefix(target, dstDir+string(os.PathSeparator)) {
			return errors.Errorf("invalid tar entry path: %s (potential zip slip attack)", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, fs.FileMode(hdr.Mode)|common.FileMode0700); err != nil {
				return errors.Wrapf(err, "failed to create directory %s from tar", target)
			}
		case tar.TypeReg:
			if err := extractFile(tr, target, fs.FileMode(hdr.Mode)); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := CreateFileDir(target); err != nil {
				return err
			}
			if err := Remove(target); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return errors.Wrapf(err, "failed to create symlink %s -> %s from tar", target, hdr.Linkname)
			}
		}
	}
}

func extractFile(r io.Reader, target string, mode fs.FileMode) error {
	if err := CreateFileDir(target); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, mode)
	if err != nil {
		return errors.Wrapf(err, "failed to create file %s from tar", target)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to write content to file %s from tar", target)
	}
	return errors.Wrapf(f.Close(), "failed to close %s", target)
}
