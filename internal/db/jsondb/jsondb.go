// Package jsondb keeps the dataset in a single pretty-printed JSON file.
// The file is read in full on every Load and rewritten in full on every Save.
// Read and write failures are logged and swallowed: a broken file reads as an
// empty dataset and a failed write leaves the previous content in place.
package jsondb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/patric-chuzhbe/kidneyhealth/internal/logger"
	"github.com/patric-chuzhbe/kidneyhealth/internal/models"
)

const filePerm = 0644

type JSONDB struct {
	fileName string
}

func New(fileName string) (*JSONDB, error) {
	if fileName == "" {
		return nil, errors.New("in internal/db/jsondb/jsondb.go/New(): empty file name")
	}

	return &JSONDB{fileName: fileName}, nil
}

func parseJSONFile(fileName string) (*models.Dataset, error) {
	raw, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	dataset := models.NewDataset()
	if err := json.Unmarshal(raw, dataset); err != nil {
		return nil, fmt.Errorf("error unmarshaling JSON: %w", err)
	}

	return dataset.Normalize(), nil
}

// writeToJSONFile writes into a temporary sibling and renames it over the
// target, so a failed write never truncates the existing file.
func writeToJSONFile(fileName string, dataset *models.Dataset) error {
	jsonData, err := json.MarshalIndent(dataset, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fileName), filepath.Base(fileName)+".*.tmp")
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(jsonData); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing to file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing file: %w", err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		return fmt.Errorf("error setting file mode: %w", err)
	}

	if err := os.Rename(tmpName, fileName); err != nil {
		return fmt.Errorf("error replacing file: %w", err)
	}

	return nil
}

// Load returns the stored dataset. A missing file yields an empty dataset
// silently; an unreadable or malformed one is logged first.
func (db *JSONDB) Load(ctx context.Context) (*models.Dataset, error) {
	dataset, err := parseJSONFile(db.fileName)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Log.Errorw("Error reading data", "file", db.fileName, "error", err)
		}
		return models.NewDataset(), nil
	}

	return dataset, nil
}

// Save overwrites the file with the given dataset. Failures are logged only.
func (db *JSONDB) Save(ctx context.Context, dataset *models.Dataset) error {
	if err := writeToJSONFile(db.fileName, dataset.Clone().Normalize()); err != nil {
		logger.Log.Errorw("Error writing data", "file", db.fileName, "error", err)
	}

	return nil
}

func (db *JSONDB) Ping(ctx context.Context) error {
	_, err := os.Stat(filepath.Dir(db.fileName))

	return err
}

func (db *JSONDB) Close() error {
	return nil
}
