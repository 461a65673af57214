package ignore

import (
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName 是 base path 下可选的忽略规则文件 (gitignore 语法)
const FileName = ".mockilsignore"

// Matcher 封装了隐藏逻辑
// 它负责判断一个目录条目是否应该从 repository / artifact / object 列表中排除
type Matcher struct {
	ignorer *gitignore.GitIgnore
}

// NewMatcher 初始化忽略匹配器
// rootPath: 仓库树的根目录 (用于查找 .mockilsignore 文件)
func NewMatcher(rootPath string) (*Matcher, error) {
	// 1. 默认只隐藏 dotfiles；其他名字一律保留，否则会改变 oid
	defaultRules := []string{
		".*",
	}

	var ignorer *gitignore.GitIgnore
	var err error

	// 2. 检查用户是否有 .mockilsignore 文件
	ignoreFilePath := filepath.Join(rootPath, FileName)

	if _, errStat := os.Stat(ignoreFilePath); errStat == nil {
		ignorer, err = gitignore.CompileIgnoreFileAndLines(ignoreFilePath, defaultRules...)
	} else {
		ignorer = gitignore.CompileIgnoreLines(defaultRules...)
	}

	if err != nil {
		return nil, err
	}

	return &Matcher{ignorer: ignorer}, nil
}

// Matches 检查给定的路径是否应该被隐藏
// path: 相对于仓库树根目录的路径 (例如 "warc/1234/bla.txt")
// 返回: true 表示隐藏 (Skip), false 表示保留 (Keep)
func (m *Matcher) Matches(path string) bool {
	path = filepath.ToSlash(path)

	// dotfile 规则不依赖 gitignore 库的实现细节，直接判断最后一段
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	if m == nil || m.ignorer == nil {
		return false
	}
	return m.ignorer.MatchesPath(path)
}
