package testutil

import (
	"path/filepath"
	"runtime"
)

// Path returns the absolute path of a file under internal/testutil/testdata.
func Path(filename string) string {
	_, currentFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(currentFile), "testdata", filename)
}
