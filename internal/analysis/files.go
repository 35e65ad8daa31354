package analysis

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/banshee-data/stereolab/internal/fsutil"
)

// DirectoryStats counts the direct children of one directory.
type DirectoryStats struct {
	FileCount   int `json:"file_count"`
	SubdirCount int `json:"subdir_count"`
}

// ExtensionStats aggregates files sharing an extension.
type ExtensionStats struct {
	Count     int   `json:"count"`
	TotalSize int64 `json:"total_size"`
}

// FileStatistics are whole-tree aggregates.
type FileStatistics struct {
	TotalFiles     int                       `json:"total_files"`
	TotalSizeBytes int64                     `json:"total_size_bytes"`
	ByExtension    map[string]ExtensionStats `json:"by_extension"`
}

// FileAnalysis is the file_analysis.json analysis artifact.
type FileAnalysis struct {
	Timestamp          string                    `json:"timestamp"`
	DirectoryStructure map[string]DirectoryStats `json:"directory_structure"`
	FileStatistics     FileStatistics            `json:"file_statistics"`
}

// CompletenessValidation reports which expected artifacts a run produced.
type CompletenessValidation struct {
	ExistingFiles     []string `json:"existing_files"`
	MissingFiles      []string `json:"missing_files"`
	CompletenessRatio float64  `json:"completeness_ratio"`
	Status            string   `json:"status"`
}

// FileAnalyzer inventories a run directory tree.
type FileAnalyzer struct {
	fs fsutil.FileSystem
}

// NewFileAnalyzer creates an analyzer over the given filesystem.
func NewFileAnalyzer(filesystem fsutil.FileSystem) *FileAnalyzer {
	return &FileAnalyzer{fs: filesystem}
}

// Analyze walks root once and builds per-directory and per-extension
// statistics. Unreadable entries are skipped rather than failing the walk.
func (a *FileAnalyzer) Analyze(root string) (*FileAnalysis, error) {
	out := &FileAnalysis{
		Timestamp:          timeNow().UTC().Format("2006-01-02T15:04:05Z07:00"),
		DirectoryStructure: make(map[string]DirectoryStats),
		FileStatistics: FileStatistics{
			ByExtension: make(map[string]ExtensionStats),
		},
	}

	err := a.fs.Walk(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}

		if d.IsDir() {
			if rel != "." {
				if _, ok := out.DirectoryStructure[rel]; !ok {
					out.DirectoryStructure[rel] = DirectoryStats{}
				}
				bumpParent(out.DirectoryStructure, rel, false)
			}
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}

		bumpParent(out.DirectoryStructure, rel, true)
		out.FileStatistics.TotalFiles++
		out.FileStatistics.TotalSizeBytes += info.Size()

		ext := strings.ToLower(filepath.Ext(rel))
		if ext == "" {
			ext = "(none)"
		}
		stats := out.FileStatistics.ByExtension[ext]
		stats.Count++
		stats.TotalSize += info.Size()
		out.FileStatistics.ByExtension[ext] = stats

		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// bumpParent attributes one child entry to its containing directory. Children
// directly under root are not tracked per-directory.
func bumpParent(dirs map[string]DirectoryStats, rel string, isFile bool) {
	parent := filepath.Dir(rel)
	if parent == "." {
		return
	}
	stats := dirs[parent]
	if isFile {
		stats.FileCount++
	} else {
		stats.SubdirCount++
	}
	dirs[parent] = stats
}

// ValidateCompleteness checks an expected relative-path list against the run
// directory. The ratio is existing/expected; status is COMPLETE only when
// nothing is missing.
func (a *FileAnalyzer) ValidateCompleteness(root string, expected []string) *CompletenessValidation {
	v := &CompletenessValidation{}
	for _, rel := range expected {
		if a.fs.Exists(filepath.Join(root, rel)) {
			v.ExistingFiles = append(v.ExistingFiles, rel)
		} else {
			v.MissingFiles = append(v.MissingFiles, rel)
		}
	}
	if len(expected) > 0 {
		v.CompletenessRatio = round3(float64(len(v.ExistingFiles)) / float64(len(expected)))
	}
	if len(v.MissingFiles) == 0 {
		v.Status = "COMPLETE"
	} else {
		v.Status = "INCOMPLETE"
	}
	return v
}
