package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// EvidenceFile describes one flushed evidence frame.
type EvidenceFile struct {
	Name      string    `json:"name"`
	StudentID string    `json:"student_id"`
	Taken     time.Time `json:"taken"`
	Size      int64     `json:"size"`
}

// ParseEvidenceName splits a file name written by FlushFrames into its
// timestamp and student id.
func ParseEvidenceName(name string) (time.Time, string, error) {
	base, ok := strings.CutSuffix(name, ".jpg")
	if !ok || len(base) < len(timestampLayout)+2 || base[len(timestampLayout)] != '_' {
		return time.Time{}, "", fmt.Errorf("not an evidence file: %s", name)
	}
	taken, err := time.ParseInLocation(timestampLayout, base[:len(timestampLayout)], time.Local)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("bad timestamp in %s: %w", name, err)
	}
	return taken, base[len(timestampLayout)+1:], nil
}

// ListEvidence returns the evidence files in dir, newest first. Files that
// were not written by FlushFrames are ignored. A missing dir is empty.
func ListEvidence(dir string) ([]EvidenceFile, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []EvidenceFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read evidence directory: %w", err)
	}

	files := make([]EvidenceFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		taken, id, err := ParseEvidenceName(e.Name())
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, EvidenceFile{Name: e.Name(), StudentID: id, Taken: taken, Size: info.Size()})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Taken.After(files[j].Taken) })
	return files, nil
}

// EvidencePath resolves name inside dir, refusing anything that is not a
// plain evidence file name.
func EvidencePath(dir, name string) (string, error) {
	if name != filepath.Base(name) {
		return "", fmt.Errorf("invalid evidence name %q", name)
	}
	if _, _, err := ParseEvidenceName(name); err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
