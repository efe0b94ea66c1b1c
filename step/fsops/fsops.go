// Package fsops holds filesystem steps for the local machine. Each step
// reads its step.Value arguments when it executes and records enough state
// to undo exactly what it changed.
package fsops

import (
	"io/fs"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmbuild/ending"
	"github.com/mensylisir/xmbuild/file"
	"github.com/mensylisir/xmbuild/step"
)

// MkdirStep creates a directory and its parents.
type MkdirStep struct {
	step.BaseStep
	Path step.Value
	Mode fs.FileMode

	created string
}

// Mkdir creates path with mode 0755.
func Mkdir(path step.Value) *MkdirStep {
	return &MkdirStep{
		BaseStep: step.NewBaseStep("create directory " + step.Describe(path)),
		Path:     path,
	}
}

func (s *MkdirStep) Execute(log *logrus.Entry) *ending.Result {
	s.created = ""
	path, err := s.Path.Value()
	if err != nil {
		return ending.Failure(err, "")
	}
	created, err := file.MkdirAll(path, s.Mode)
	if err != nil {
		return ending.Failure(err, "")
	}
	s.created = created
	if created == "" {
		log.Debugf("directory %s already exists", path)
	}
	return ending.Success("created "+path, path)
}

// Rollback removes the topmost directory this step created. A directory that
// existed beforehand is left alone.
func (s *MkdirStep) Rollback() step.Step {
	return step.Func("remove directory created by: "+s.Description(), func(log *logrus.Entry) error {
		if s.created == "" {
			return nil
		}
		log.Debugf("removing %s", s.created)
		return file.Remove(s.created)
	})
}

// WriteFileStep writes content to a file, replacing what was there.
type WriteFileStep struct {
	step.BaseStep
	Path    step.Value
	Content step.Value
	Mode    fs.FileMode

	previous *file.Snapshot
}

// WriteFile writes content to path. A zero mode means 0644.
func WriteFile(path, content step.Value, mode fs.FileMode) *WriteFileStep {
	return &WriteFileStep{
		BaseStep: step.NewBaseStep("write file " + step.Describe(path)),
		Path:     path,
		Content:  content,
		Mode:     mode,
	}
}

func (s *WriteFileStep) Execute(*logrus.Entry) *ending.Result {
	s.previous = nil
	values, err := step.Resolve(s.Path, s.Content)
	if err != nil {
		return ending.Failure(err, "")
	}
	path, content := values[0], values[1]
	snap, err := file.Capture(path)
	if err != nil {
		return ending.Failure(err, "")
	}
	if err := file.WriteFile(path, []byte(content), s.Mode); err != nil {
		return ending.Failure(err, "")
	}
	s.previous = snap
	return ending.Success("wrote "+path, path)
}

// Rollback restores the previous content, or removes the file if it did not
// exist before.
func (s *WriteFileStep) Rollback() step.Step {
	return step.Func("restore file written by: "+s.Description(), func(*logrus.Entry) error {
		if s.previous == nil {
			return nil
		}
		return s.previous.Restore()
	})
}

// RenameStep moves src to dst. dst must not exist.
type RenameStep struct {
	step.BaseStep
	Src step.Value
	Dst step.Value

	moved    bool
	from, to string
}

func Rename(src, dst step.Value) *RenameStep {
	return &RenameStep{
		BaseStep: step.NewBaseStep("rename " + step.Describe(src) + " to " + step.Describe(dst)),
		Src:      src,
		Dst:      dst,
	}
}

func (s *RenameStep) Execute(*logrus.Entry) *ending.Result {
	s.moved = false
	values, err := step.Resolve(s.Src, s.Dst)
	if err != nil {
		return ending.Failure(err, "")
	}
	from, to := values[0], values[1]
	if err := ensureAbsent(to); err != nil {
		return ending.Failure(err, "")
	}
	if err := file.Move(from, to); err != nil {
		return ending.Failure(err, "")
	}
	s.moved, s.from, s.to = true, from, to
	return ending.Success("renamed "+from+" to "+to, to)
}

// Rollback moves the path back.
func (s *RenameStep) Rollback() step.Step {
	return step.Func("undo: "+s.Description(), func(*logrus.Entry) error {
		if !s.moved {
			return nil
		}
		return file.Move(s.to, s.from)
	})
}

// CopyStep copies a file or directory tree. dst must not exist.
type CopyStep struct {
	step.BaseStep
	Src step.Value
	Dst step.Value

	copied string
}

func Copy(src, dst step.Value) *CopyStep {
	return &CopyStep{
		BaseStep: step.NewBaseStep("copy " + step.Describe(src) + " to " + step.Describe(dst)),
		Src:      src,
		Dst:      dst,
	}
}

func (s *CopyStep) Execute(*logrus.Entry) *ending.Result {
	s.copied = ""
	values, err := step.Resolve(s.Src, s.Dst)
	if err != nil {
		return ending.Failure(err, "")
	}
	from, to := values[0], values[1]
	if err := ensureAbsent(to); err != nil {
		return ending.Failure(err, "")
	}
	s.copied = to
	if err := file.Copy(from, to); err != nil {
		return ending.Failure(err, "")
	}
	return ending.Success("copied "+from+" to "+to, to)
}

// Rollback removes the copy.
func (s *CopyStep) Rollback() step.Step {
	return step.Func("remove copy made by: "+s.Description(), func(*logrus.Entry) error {
		if s.copied == "" {
			return nil
		}
		return file.Remove(s.copied)
	})
}

// RemoveStep deletes a path and everything below it. A missing path is a
// success, so the step may be repeated freely.
type RemoveStep struct {
	step.BaseStep
	Path step.Value
}

func Remove(path step.Value) *RemoveStep {
	return &RemoveStep{
		BaseStep: step.NewBaseStep("remove " + step.Describe(path)),
		Path:     path,
	}
}

func (s *RemoveStep) Execute(log *logrus.Entry) *ending.Result {
	path, err := s.Path.Value()
	if err != nil {
		return ending.Failure(err, "")
	}
	exists, err := file.PathExists(path)
	if err != nil {
		return ending.Failure(err, "")
	}
	if !exists {
		log.Debugf("%s does not exist", path)
		return ending.Success("nothing to remove", path)
	}
	if err := file.Remove(path); err != nil {
		return ending.Failure(err, "")
	}
	return ending.Success("removed "+path, path)
}

func ensureAbsent(path string) error {
	exists, err := file.PathExists(path)
	if err != nil {
		return err
	}
	if exists {
		return errors.Errorf("destination %s already exists", path)
	}
	return nil
}

var (
	_ step.Rollbacker = (*MkdirStep)(nil)
	_ step.Rollbacker = (*WriteFileStep)(nil)
	_ step.Rollbacker = (*RenameStep)(nil)
	_ step.Rollbacker = (*CopyStep)(nil)
	_ step.Step       = (*RemoveStep)(nil)
)
