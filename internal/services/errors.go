package services

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuestion 问题为空
	ErrEmptyQuestion = errors.New("question cannot be empty")
	// ErrUnsupportedFile 上传的文件不是PDF
	ErrUnsupportedFile = errors.New("only .pdf files are supported")
)

// Stage 入库流程的阶段
type Stage string

const (
	StageLoad  Stage = "load"  // 读取PDF
	StageSplit Stage = "split" // 切分文本块
	StageAdd   Stage = "add"   // 向量化并写入索引
)

// IngestionError 入库失败，记录失败所在的阶段
type IngestionError struct {
	Stage Stage  // 失败阶段
	Path  string // 文件路径
	Err   error  // 原始错误
}

// Error 实现error接口
func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingest %s failed at %s stage: %v", e.Path, e.Stage, e.Err)
}

// Unwrap 返回原始错误
func (e *IngestionError) Unwrap() error {
	return e.Err
}

// FailedStage 返回err链中IngestionError的阶段，不存在时返回空字符串
func FailedStage(err error) Stage {
	var ie *IngestionError
	if errors.As(err, &ie) {
		return ie.Stage
	}
	return ""
}
