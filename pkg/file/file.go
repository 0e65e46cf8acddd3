package file

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileOperations is the file system surface used by config loading, the content store
// and the dev tools. Tests substitute mocks.MockFileOperations.
type FileOperations interface {
	IsFileExists(filePath string) (bool, error)
	ReadFile(filePath string) (string, error)
	ReadFileRaw(filePath string) ([]byte, error)
	ReadYamlFile(filePath string, v any) error
	WriteFile(filePath string, data string) error
	ListFiles(dir string, exts map[string]struct{}) ([]string, error)
}

// FileService is the os-backed FileOperations.
type FileService struct{}

func NewFileService() *FileService {
	return &FileService{}
}

// IsFileExists reports whether filePath exists. Errors other than not-exist, such as
// permission failures, are returned with false.
func (fs *FileService) IsFileExists(filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, iofs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// ReadFile returns the file as text.
func (fs *FileService) ReadFile(filePath string) (string, error) {
	data, err := fs.ReadFileRaw(filePath)
	return string(data), err
}

func (fs *FileService) ReadFileRaw(filePath string) ([]byte, error) {
	return os.ReadFile(filePath)
}

// ReadYamlFile decodes the YAML document at filePath into v.
func (fs *FileService) ReadYamlFile(filePath string, v any) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filePath, err)
	}
	return nil
}

// WriteFile atomically replaces the file at filePath with data, creating parent
// directories as needed. Files are world-readable since they are served as content.
func (fs *FileService) WriteFile(filePath string, data string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, []byte(data), 0644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, filePath)
}

// ListFiles returns the names of regular files in dir whose lower-cased extension is in
// exts, sorted by name. A nil exts matches every file.
func (fs *FileService) ListFiles(dir string, exts map[string]struct{}) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if exts != nil {
			if _, ok := exts[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
				continue
			}
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
