package logging

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// logFilePrefix names every file Init creates.
const logFilePrefix = "alertwatch_"

// rotate removes the oldest log files in dir when the number of files exceeds maxFiles.
// It only removes files that match the naming pattern "alertwatch_*.log".
func rotate(dir string, maxFiles int) error {
	if maxFiles <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	type logFile struct {
		path    string
		modTime int64
	}
	var logFiles []logFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		logFiles = append(logFiles, logFile{path: filepath.Join(dir, name), modTime: info.ModTime().UnixNano()})
	}
	if len(logFiles) <= maxFiles {
		return nil
	}
	// oldest first; name breaks ties
	sort.Slice(logFiles, func(i, j int) bool {
		if logFiles[i].modTime != logFiles[j].modTime {
			return logFiles[i].modTime < logFiles[j].modTime
		}
		return logFiles[i].path < logFiles[j].path
	})
	for i := 0; i < len(logFiles)-maxFiles; i++ {
		os.Remove(logFiles[i].path) // ignore errors
	}
	return nil
}
