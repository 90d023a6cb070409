package service

import (
	"errors"
	"fmt"
)

// PreconditionError 请求的处理阶段当前不允许开始（内容类型不对、前置阶段未完成、缺少文件）
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return e.Reason
}

// NewPreconditionError 创建前置条件错误
func NewPreconditionError(format string, args ...interface{}) error {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...)}
}

// DuplicateError 同类非失败任务或字幕已存在
type DuplicateError struct {
	Reason string
}

func (e *DuplicateError) Error() string {
	return e.Reason
}

// NewDuplicateError 创建重复错误
func NewDuplicateError(format string, args ...interface{}) error {
	return &DuplicateError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError 引用的资源不存在
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s 不存在: %s", e.Resource, e.ID)
}

// NewNotFoundError 创建资源不存在错误
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ExternalCallError 外部能力调用失败（网络、配额、处理失败）
type ExternalCallError struct {
	Op  string
	Err error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalCallError) Unwrap() error {
	return e.Err
}

// NewExternalCallError 包装外部调用错误
func NewExternalCallError(op string, err error) error {
	return &ExternalCallError{Op: op, Err: err}
}

// IsPrecondition 判断是否为前置条件错误
func IsPrecondition(err error) bool {
	var target *PreconditionError
	return errors.As(err, &target)
}

// IsDuplicate 判断是否为重复错误
func IsDuplicate(err error) bool {
	var target *DuplicateError
	return errors.As(err, &target)
}

// IsNotFound 判断是否为资源不存在错误
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsExternalCall 判断是否为外部调用错误
func IsExternalCall(err error) bool {
	var target *ExternalCallError
	return errors.As(err, &target)
}
