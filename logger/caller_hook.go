package logger

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

const logrusPackage = "github.com/sirupsen/logrus."

// packageDir is the directory holding this file. Frames from non-test files
// in it are Entry wrappers and never the call site.
var packageDir = func() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(file)
}()

// callerHook points entry.Caller past logrus and the Entry wrappers so the
// file field names the component that logged.
type callerHook struct{}

func (h *callerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *callerHook) Fire(entry *logrus.Entry) error {
	pcs := make([]uintptr, 24)
	n := runtime.Callers(4, pcs)
	if frame, ok := callSite(runtime.CallersFrames(pcs[:n])); ok {
		entry.Caller = &frame
	}
	return nil
}

func callSite(frames *runtime.Frames) (runtime.Frame, bool) {
	for {
		frame, more := frames.Next()
		if !internalFrame(frame) && frame.Function != "" {
			return frame, true
		}
		if !more {
			return runtime.Frame{}, false
		}
	}
}

func internalFrame(f runtime.Frame) bool {
	if strings.HasPrefix(f.Function, logrusPackage) {
		return true
	}
	if strings.HasSuffix(f.File, "_test.go") {
		return false
	}
	return filepath.Dir(f.File) == packageDir
}
