package app

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/gilad12-coder/agentic-tdd/internal/constants"
)

// FileHelper provides file operation utilities
type FileHelper struct {
	respectGitignore bool
}

// NewFileHelper creates a new FileHelper
func NewFileHelper() *FileHelper {
	return &FileHelper{}
}

// WithGitignore makes directory walks skip paths matched by the root's .gitignore
func (h *FileHelper) WithGitignore(respect bool) *FileHelper {
	h.respectGitignore = respect
	return h
}

// CollectPythonFiles collects .py files from paths. Files named directly are
// kept unless excluded; directories are filtered through the include and
// exclude patterns, which use gitignore syntax relative to the directory.
func (h *FileHelper) CollectPythonFiles(paths []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	var files []string
	exclude := compilePatterns(excludePatterns)

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if h.IsValidPythonFile(path) && !matches(exclude, filepath.Base(path)) {
				files = append(files, path)
			}
			continue
		}

		collected, err := h.collectDir(path, recursive, compilePatterns(includePatterns), exclude)
		if err != nil {
			return nil, err
		}
		files = append(files, collected...)
	}

	return files, nil
}

func (h *FileHelper) collectDir(root string, recursive bool, include, exclude *ignore.GitIgnore) ([]string, error) {
	var gitignore *ignore.GitIgnore
	if h.respectGitignore {
		if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
			gitignore = gi
		}
	}

	var files []string
	err := filepath.WalkDir(root, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if filePath == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, filePath)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			// Skip excluded directories early
			if !recursive || matches(exclude, rel) || matches(gitignore, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !h.IsValidPythonFile(filePath) || matches(exclude, rel) || matches(gitignore, rel) {
			return nil
		}
		if include != nil && !include.MatchesPath(rel) {
			return nil
		}
		files = append(files, filePath)
		return nil
	})
	return files, err
}

// IsValidPythonFile checks the file extension
func (h *FileHelper) IsValidPythonFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), constants.PythonFileExtension)
}

// FileExists checks if a regular file exists
func (h *FileHelper) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// ReadFile reads file content
func (h *FileHelper) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func compilePatterns(patterns []string) *ignore.GitIgnore {
	if len(patterns) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(patterns...)
}

func matches(gi *ignore.GitIgnore, path string) bool {
	return gi != nil && gi.MatchesPath(path)
}

// ResolveFilePaths resolves file paths, returning existing files directly
// or collecting files from directories
func ResolveFilePaths(
	fileHelper *FileHelper,
	paths []string,
	recursive bool,
	includePatterns []string,
	excludePatterns []string,
) ([]string, error) {
	allFiles := true
	for _, path := range paths {
		exists, err := fileHelper.FileExists(path)
		if err != nil || !exists {
			allFiles = false
			break
		}
	}

	if allFiles {
		return paths, nil
	}

	return fileHelper.CollectPythonFiles(paths, recursive, includePatterns, excludePatterns)
}
