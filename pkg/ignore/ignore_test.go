package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Defaults(t *testing.T) {
	// 1. 空目录 (没有 .mockilsignore)
	tmpDir := t.TempDir()

	matcher, err := NewMatcher(tmpDir)
	require.NoError(t, err)

	tests := []struct {
		path     string
		shouldIg bool
	}{
		{".git", true},
		{"warc/.hidden", true},
		{"warc/1234/.DS_Store", true},
		{"Thumbs.db", false},
		{"warc/desktop.ini", false},
		{"warc", false},
		{"warc/1234", false},
		{"warc/1234/bla.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.shouldIg, matcher.Matches(tt.path), "Path: %s", tt.path)
		})
	}
}

func TestMatcher_WithUserFile(t *testing.T) {
	tmpDir := t.TempDir()

	ignoreContent := `
# 临时文件
*.tmp
scratch
`
	err := os.WriteFile(filepath.Join(tmpDir, FileName), []byte(ignoreContent), 0644)
	require.NoError(t, err)

	matcher, err := NewMatcher(tmpDir)
	require.NoError(t, err)

	tests := []struct {
		path     string
		shouldIg bool
	}{
		// --- 默认规则依然要生效 ---
		{".hidden", true},

		// --- 用户规则 ---
		{"warc/1234/upload.tmp", true},
		{"scratch", true},
		{"warc/scratch", true},

		// --- 正常条目 ---
		{"warc/1234/bla.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.shouldIg, matcher.Matches(tt.path), "Path: %s", tt.path)
		})
	}
}

func TestMatcher_Nil(t *testing.T) {
	var m *Matcher
	assert.True(t, m.Matches(".env"))
	assert.False(t, m.Matches("warc"))
}
