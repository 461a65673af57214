package disk

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"

	"mockils/pkg/ignore"
	"mockils/pkg/storage"
	"mockils/pkg/types"

	"golang.org/x/sync/errgroup"
)

// statConcurrency 限制 ListObjects 并发 stat 的数量
const statConcurrency = 8

// Adapter 实现了 storage.Tree 接口
// 目录结构: <rootPath>/<repository>/<idn>/<object-file>
type Adapter struct {
	rootPath string // 比如: /srv/mockils/data
	matcher  *ignore.Matcher
}

// NewAdapter 创建一个新的磁盘目录映射器
// 与写入型存储不同，这里不会自动创建根目录：树不存在就是配置错误
func NewAdapter(root string) (*Adapter, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository root %s is not a directory", root)
	}

	matcher, err := ignore.NewMatcher(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load ignore rules: %w", err)
	}

	return &Adapter{rootPath: root, matcher: matcher}, nil
}

// layout 校验每个 segment 并返回 (相对路径, 物理路径)
// 任何一个 segment 不合法都直接拒绝，绝不拼接
func (s *Adapter) layout(segments ...types.Segment) (string, string, error) {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if err := seg.Validate(); err != nil {
			return "", "", err
		}
		parts = append(parts, seg.String())
	}
	rel := path.Join(parts...)
	return rel, filepath.Join(s.rootPath, filepath.FromSlash(rel)), nil
}

// dir 解析一个必须存在且未被隐藏的目录
func (s *Adapter) dir(segments ...types.Segment) (string, string, error) {
	rel, full, err := s.layout(segments...)
	if err != nil {
		return "", "", err
	}
	if rel != "" && s.matcher.Matches(rel) {
		return "", "", fmt.Errorf("%w: %s", storage.ErrNotFound, rel)
	}

	info, err := os.Stat(full)
	if os.IsNotExist(err) {
		return "", "", fmt.Errorf("%w: %s", storage.ErrNotFound, displayPath(rel))
	}
	if err != nil {
		return "", "", err
	}
	if !info.IsDir() {
		return "", "", fmt.Errorf("%w: %s is not a directory", storage.ErrNotFound, displayPath(rel))
	}
	return rel, full, nil
}

// subdirs 列出目录下所有可见的子目录 (符号链接会被跟随)
func (s *Adapter) subdirs(ctx context.Context, segments ...types.Segment) ([]string, error) {
	rel, full, err := s.dir(segments...)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", displayPath(rel), err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.matcher.Matches(path.Join(rel, entry.Name())) {
			continue
		}
		isDir := entry.IsDir()
		if entry.Type()&fs.ModeSymlink != 0 {
			// 跟随链接判断目标类型；悬空链接直接跳过
			info, err := os.Stat(filepath.Join(full, entry.Name()))
			isDir = err == nil && info.IsDir()
		}
		if isDir {
			names = append(names, entry.Name())
		}
	}

	// os.ReadDir 已经按文件名排序，这里显式再排一次，把顺序保证写在代码里
	slices.Sort(names)
	return names, nil
}

func (s *Adapter) ListRepositories(ctx context.Context) ([]string, error) {
	return s.subdirs(ctx)
}

func (s *Adapter) ListArtifacts(ctx context.Context, repository types.Segment) ([]string, error) {
	return s.subdirs(ctx, repository)
}

func (s *Adapter) ListObjects(ctx context.Context, repository, idn types.Segment) ([]storage.Object, error) {
	rel, full, err := s.dir(repository, idn)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}

	// 1. 过滤隐藏条目
	candidates := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || s.matcher.Matches(path.Join(rel, entry.Name())) {
			continue
		}
		candidates = append(candidates, entry.Name())
	}

	// 2. 并发 stat (跟随符号链接，拿到真实的 size)
	// 每个 goroutine 只写自己的槽位，不需要锁
	infos := make([]fs.FileInfo, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statConcurrency)
	for i, name := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			info, err := os.Stat(filepath.Join(full, name))
			if os.IsNotExist(err) {
				// 列目录和 stat 之间文件被删了，或者是悬空链接
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to stat %s: %w", name, err)
			}
			infos[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 3. 只保留普通文件
	objects := make([]storage.Object, 0, len(candidates))
	for i, info := range infos {
		if info == nil || !info.Mode().IsRegular() {
			continue
		}
		objects = append(objects, storage.Object{
			Name:    candidates[i],
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	// 4. 排序: oid 就是这个顺序下的下标
	slices.SortFunc(objects, func(a, b storage.Object) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return objects, nil
}

func (s *Adapter) GetObject(ctx context.Context, repository, idn types.Segment, oid types.OID) (storage.Object, error) {
	objects, err := s.ListObjects(ctx, repository, idn)
	if err != nil {
		return storage.Object{}, err
	}
	if !oid.InRange(len(objects)) {
		return storage.Object{}, fmt.Errorf("%w: oid %d, artifact %s/%s has %d objects",
			storage.ErrOutOfRange, oid, repository, idn, len(objects))
	}
	return objects[oid], nil
}

func (s *Adapter) OpenObject(ctx context.Context, repository, idn, name types.Segment) (io.ReadSeekCloser, error) {
	rel, full, err := s.layout(repository, idn, name)
	if err != nil {
		return nil, err
	}
	if s.matcher.Matches(rel) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, rel)
	}

	f, err := os.Open(full)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, rel)
	}
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is not a regular file", storage.ErrNotFound, rel)
	}
	return f, nil
}

func displayPath(rel string) string {
	if rel == "" {
		return "repository root"
	}
	return rel
}
