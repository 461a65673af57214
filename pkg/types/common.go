// pkg/types/common.go
package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

var ErrInvalidSegment = errors.New("invalid path segment")

// Segment 代表 URL 中用户提供的单个路径片段 (repository / idn / 文件名)
// 只有通过 Validate 的 Segment 才能拼接到 base path 下面
type Segment string

func (s Segment) String() string { return string(s) }

// Validate 保证 Segment 只能解析为 base path 的直接子项，绝不会逃逸到外面
func (s Segment) Validate() error {
	str := string(s)
	switch {
	case str == "":
		return fmt.Errorf("%w: empty", ErrInvalidSegment)
	case str == "." || str == "..":
		return fmt.Errorf("%w: %q is a relative reference", ErrInvalidSegment, str)
	case strings.ContainsAny(str, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidSegment, str)
	case strings.ContainsRune(str, 0):
		return fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidSegment, str)
	case filepath.IsAbs(str) || filepath.VolumeName(str) != "":
		return fmt.Errorf("%w: %q is an absolute path", ErrInvalidSegment, str)
	}
	// 最后一道防线: 交给标准库再判断一次
	if !filepath.IsLocal(str) {
		return fmt.Errorf("%w: %q is not local", ErrInvalidSegment, str)
	}
	return nil
}

// OID 是对象在排序后文件列表中的下标 (从 0 开始)
type OID int

func (o OID) String() string { return strconv.Itoa(int(o)) }

// InRange 检查下标是否落在 [0, n)
func (o OID) InRange(n int) bool { return o >= 0 && int(o) < n }

// ParseOID 解析 URL 中的 oid
// 只接受规范的十进制写法 ("0", "12")，保证每个对象只有一个 URL
func ParseOID(s string) (OID, error) {
	if s == "" || strings.Trim(s, "0123456789") != "" || (len(s) > 1 && s[0] == '0') {
		return 0, fmt.Errorf("invalid oid %q: want a non-negative decimal without leading zeros", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid oid %q: %w", s, err)
	}
	return OID(n), nil
}

// SnapshotID 标识一次 manifest 生成时记录下来的对象列表
type SnapshotID string

func (id SnapshotID) String() string { return string(id) }
func (id SnapshotID) IsZero() bool   { return id == "" }
