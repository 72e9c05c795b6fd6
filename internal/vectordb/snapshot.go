package vectordb

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// snapshot 持久化到磁盘的文档集合
// Generation在每次重写快照时加一，用来识别过期的追加日志
type snapshot struct {
	Generation int        `json:"generation"`
	Dimension  int        `json:"dimension"`
	Documents  []Document `json:"documents"`
}

// logHeader 追加日志的第一行
type logHeader struct {
	Generation int `json:"generation"`
}

// writeJSONAtomic 先写临时文件再重命名，避免写到一半的文件被读取
func writeJSONAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// readJSON 读取JSON文件，文件不存在时返回false
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return true, nil
}

// removeFiles 删除文件，忽略不存在的文件
func removeFiles(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

// appendLog 把文档逐行追加到日志末尾，写入失败时截断回原来的长度
func appendLog(path string, generation int, docs []Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat log: %w", err)
	}
	size := info.Size()

	if err := writeLogEntries(f, size == 0, generation, docs); err != nil {
		if terr := f.Truncate(size); terr != nil {
			return errors.Join(err, fmt.Errorf("failed to truncate log: %w", terr))
		}
		return err
	}
	return nil
}

func writeLogEntries(f *os.File, withHeader bool, generation int, docs []Document) error {
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	if withHeader {
		if err := enc.Encode(logHeader{Generation: generation}); err != nil {
			return fmt.Errorf("failed to encode log header: %w", err)
		}
	}
	for i := range docs {
		if err := enc.Encode(&docs[i]); err != nil {
			return fmt.Errorf("failed to encode log entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write log: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync log: %w", err)
	}
	return nil
}

// readLog 读取属于generation的日志
// 日志不存在或属于旧快照时返回nil，末尾写了一半的记录被丢弃
func readLog(path string, generation int) ([]Document, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	var header logHeader
	if err := dec.Decode(&header); err != nil {
		if isTruncated(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if header.Generation != generation {
		return nil, nil
	}

	var docs []Document
	for {
		var doc Document
		err := dec.Decode(&doc)
		if isTruncated(err) {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		docs = append(docs, doc)
	}
}

func isTruncated(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
