package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalArchive implements Archive on the local filesystem. Files live under
// basePath, metadata as JSON sidecars under basePath/.meta.
type LocalArchive struct {
	basePath string
}

// NewLocalArchive creates the archive directory if needed.
func NewLocalArchive(basePath string) (*LocalArchive, error) {
	if err := os.MkdirAll(filepath.Join(basePath, ".meta"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &LocalArchive{basePath: basePath}, nil
}

func (a *LocalArchive) Save(_ context.Context, filename string, contentType string, r io.Reader) (*FileInfo, error) {
	fileID := uuid.New()

	storedFilename := fmt.Sprintf("%s_%s", fileID.String()[:8], sanitizeFilename(filename))
	filePath := filepath.Join(a.basePath, storedFilename)

	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	info := &FileInfo{
		ID:          fileID,
		Name:        filename,
		Size:        size,
		ContentType: contentType,
		Path:        storedFilename,
		CreatedAt:   time.Now(),
	}

	if err := a.saveMetadata(info); err != nil {
		os.Remove(filePath)
		return nil, err
	}
	return info, nil
}

func (a *LocalArchive) Open(_ context.Context, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error) {
	info, err := a.getInfo(fileID)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(a.basePath, info.Path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, info, nil
}

func (a *LocalArchive) List(_ context.Context) ([]*FileInfo, error) {
	metaDir := filepath.Join(a.basePath, ".meta")
	entries, err := os.ReadDir(metaDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*FileInfo{}, nil
		}
		return nil, fmt.Errorf("failed to list archive metadata: %w", err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		info, err := a.getInfo(id)
		if err != nil {
			continue
		}
		files = append(files, info)
	}
	return files, nil
}

func (a *LocalArchive) Delete(_ context.Context, fileID uuid.UUID) error {
	info, err := a.getInfo(fileID)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(a.basePath, info.Path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	os.Remove(a.metaPath(fileID))
	return nil
}

func (a *LocalArchive) metaPath(fileID uuid.UUID) string {
	return filepath.Join(a.basePath, ".meta", fileID.String()+".json")
}

func (a *LocalArchive) getInfo(fileID uuid.UUID) (*FileInfo, error) {
	data, err := os.ReadFile(a.metaPath(fileID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var info FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &info, nil
}

func (a *LocalArchive) saveMetadata(info *FileInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(a.metaPath(info.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// sanitizeFilename removes unsafe characters from filenames.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
