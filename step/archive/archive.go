package archive

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmbuild/common"
	"github.com/mensylisir/xmbuild/ending"
	"github.com/mensylisir/xmbuild/file"
	"github.com/mensylisir/xmbuild/step"
)

// TarStep packs a file or directory into a gzipped tarball. An existing
// tarball at the destination is set aside while the collection runs: the
// rollback puts it back and the completion deletes it.
type TarStep struct {
	step.BaseStep
	Src step.Value
	Dst step.Value

	written string
	backup  string
}

// Tar archives src into dst.
func Tar(src, dst step.Value) *TarStep {
	return &TarStep{
		BaseStep: step.NewBaseStep("archive " + step.Describe(src) + " into " + step.Describe(dst)),
		Src:      src,
		Dst:      dst,
	}
}

func (s *TarStep) Execute(log *logrus.Entry) *ending.Result {
	s.written, s.backup = "", ""
	values, err := step.Resolve(s.Src, s.Dst)
	if err != nil {
		return ending.Failure(err, "")
	}
	src, dst := values[0], values[1]

	exists, err := file.PathExists(dst)
	if err != nil {
		return ending.Failure(err, "")
	}
	if exists {
		backup := dst + "." + common.TempPrefix + uuid.NewString()
		if err := file.Move(dst, backup); err != nil {
			return ending.Failure(err, "")
		}
		log.Debugf("moved existing %s to %s", dst, backup)
		s.backup = backup
	}

	s.written = dst
	if err := file.Tar(src, dst); err != nil {
		return ending.Failure(err, "")
	}
	return ending.Success("archived "+src+" into "+dst, dst)
}

// Rollback deletes the tarball and restores whatever was there before.
func (s *TarStep) Rollback() step.Step {
	return step.Func("remove archive written by: "+s.Description(), func(*logrus.Entry) error {
		if s.written == "" {
			return nil
		}
		if err := file.Remove(s.written); err != nil {
			return err
		}
		if s.backup == "" {
			return nil
		}
		backup := s.backup
		s.backup = ""
		return file.Move(backup, s.written)
	})
}

// Completion drops the set-aside tarball, if any is left.
func (s *TarStep) Completion() step.Step {
	return step.Func("drop previous archive replaced by: "+s.Description(), func(*logrus.Entry) error {
		if s.backup == "" {
			return nil
		}
		return file.Remove(s.backup)
	})
}

// UntarStep extracts a gzipped tarball into a directory.
type UntarStep struct {
	step.BaseStep
	Src    step.Value
	DstDir step.Value

	created string
}

// Untar extracts src into dstDir, creating it if needed.
func Untar(src, dstDir step.Value) *UntarStep {
	return &UntarStep{
		BaseStep: step.NewBaseStep("extract " + step.Describe(src) + " into " + step.Describe(dstDir)),
		Src:      src,
		DstDir:   dstDir,
	}
}

func (s *UntarStep) Execute(*logrus.Entry) *ending.Result {
	s.created = ""
	values, err := step.Resolve(s.Src, s.DstDir)
	if err != nil {
		return ending.Failure(err, "")
	}
	src, dst := values[0], values[1]
	created, err := file.MkdirAll(dst, common.FileMode0755)
	if err != nil {
		return ending.Failure(err, "")
	}
	s.created = created
	if err := file.Untar(src, dst); err != nil {
		return ending.Failure(err, "")
	}
	return ending.Success("extracted "+src+" into "+dst, dst)
}

// Rollback removes the destination directory when this step created it.
// Files extracted into a directory that already existed are kept.
func (s *UntarStep) Rollback() step.Step {
	return step.Func("remove directory created by: "+s.Description(), func(log *logrus.Entry) error {
		if s.created == "" {
			log.Debug("destination existed before extraction, leaving it in place")
			return nil
		}
		return file.Remove(s.created)
	})
}

var (
	_ step.Rollbacker = (*TarStep)(nil)
	_ step.Completer  = (*TarStep)(nil)
	_ step.Rollbacker = (*UntarStep)(nil)
)
