// Package recorder 提供逐行落盘的 CSV 记录器
//
// 采集进程可能被 Ctrl-C 随时打断，所以每写一行就 flush，
// 保证已采到的数据不丢。
package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
)

// CSVRecorder 逐行写入的 CSV 文件
type CSVRecorder struct {
	path   string
	file   *os.File
	writer *csv.Writer
	rows   int
}

// NewCSVRecorder 创建 CSV 文件并写入表头
func NewCSVRecorder(path string, header []string) (*CSVRecorder, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create csv %s: %w", path, err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		file.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVRecorder{path: path, file: file, writer: writer}, nil
}

// WriteRow 写一行并立即 flush
func (r *CSVRecorder) WriteRow(row []string) error {
	if err := r.writer.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		return fmt.Errorf("flush csv row: %w", err)
	}
	r.rows++
	return nil
}

// Rows 已写入的数据行数（不含表头）
func (r *CSVRecorder) Rows() int {
	return r.rows
}

// Path 文件路径
func (r *CSVRecorder) Path() string {
	return r.path
}

// Close 关闭文件
func (r *CSVRecorder) Close() error {
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}
