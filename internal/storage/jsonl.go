package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"poolSim/internal/model"
)

const maxLineSize = 1 << 20

// JsonlStorage appends records to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutPools appends pool snapshots as JSON lines.
func (s *JsonlStorage) PutPools(_ context.Context, pools []model.PoolRecord) error {
	return appendLines(s, pools)
}

// PutPrices appends price records as JSON lines.
func (s *JsonlStorage) PutPrices(_ context.Context, prices []model.PoolPrice) error {
	return appendLines(s, prices)
}

// LoadPools reads every snapshot and keeps the last one per pool address,
// in order of first appearance. A missing file is an empty catalog.
func (s *JsonlStorage) LoadPools(ctx context.Context) ([]model.PoolRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer file.Close()

	var records []model.PoolRecord
	index := make(map[string]int)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var record model.PoolRecord
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			return nil, fmt.Errorf("parse catalog line %d: %w", line, err)
		}
		key := strings.ToLower(record.Address)
		if i, ok := index[key]; ok {
			records[i] = record
			continue
		}
		index[key] = len(records)
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return records, nil
}

func appendLines[T any](s *JsonlStorage, records []T) error {
	if len(records) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
