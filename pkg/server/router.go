package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"mockils/pkg/app"
	"mockils/pkg/manifest"
	"mockils/pkg/readme"
	"mockils/pkg/service"
	"mockils/pkg/snapshot"
	"mockils/pkg/storage"
	"mockils/pkg/types"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	contentTypeXML  = "application/xml; charset=utf-8"
	contentTypeHTML = "text/html; charset=utf-8"

	// SnapshotHeader 携带本次 manifest 的快照 id
	SnapshotHeader = "X-Mockils-Snapshot"
	// SnapshotParam 是取对象时回传快照 id 的查询参数
	SnapshotParam = "snapshot"
)

type handlers struct {
	access *service.AccessService
	readme *readme.Renderer
}

// NewRouter 组装所有路由和中间件
func NewRouter(application *app.App) http.Handler {
	h := &handlers{
		access: service.NewAccessService(application),
		readme: application.Readme,
	}
	if h.readme == nil {
		// 内置文档不会读盘，不会出错
		h.readme, _ = readme.NewRenderer("")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Get("/", h.root)
	r.Route("/access/repositories", func(r chi.Router) {
		r.Get("/", h.repositories)
		r.Route("/{repository}/artifacts", func(r chi.Router) {
			r.Get("/", h.artifacts)
			r.Get("/{idn}", h.artifactArchive)
			r.Get("/{idn}/objects", h.objects)
			r.Get("/{idn}/objects/{oid}", h.object)
		})
	})
	return r
}

func (h *handlers) root(w http.ResponseWriter, r *http.Request) {
	page, err := h.readme.HTML()
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.Write(page)
}

func (h *handlers) repositories(w http.ResponseWriter, r *http.Request) {
	names, err := h.access.Repositories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeNameList(w, r, names)
}

func (h *handlers) artifacts(w http.ResponseWriter, r *http.Request) {
	repo, err := pathParam(r, "repository")
	if err != nil {
		writeError(w, r, err)
		return
	}
	names, err := h.access.Artifacts(r.Context(), repo)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeNameList(w, r, names)
}

func (h *handlers) artifactArchive(w http.ResponseWriter, r *http.Request) {
	repo, idn, err := artifactParams(r)
	if err == nil {
		err = h.access.ArtifactArchive(r.Context(), repo, idn)
	}
	writeError(w, r, err)
}

func (h *handlers) objects(w http.ResponseWriter, r *http.Request) {
	repo, idn, err := artifactParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.access.Manifest(r.Context(), repo, idn)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !res.Snapshot.IsZero() {
		w.Header().Set(SnapshotHeader, res.Snapshot.String())
	}
	w.Header().Set("Content-Type", contentTypeXML)
	w.Write(res.XML)
}

func (h *handlers) object(w http.ResponseWriter, r *http.Request) {
	repo, idn, err := artifactParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	oid, err := types.ParseOID(chi.URLParam(r, "oid"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	snap := types.SnapshotID(r.URL.Query().Get(SnapshotParam))

	res, err := h.access.Object(r.Context(), repo, idn, oid, snap)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer res.Content.Close()

	// 未知类型交给 ServeContent 嗅探
	if mt := manifest.GuessMIMEType(res.Object.Name); mt != "" {
		w.Header().Set("Content-Type", mt)
	}
	http.ServeContent(w, r, res.Object.Name, res.Object.ModTime, res.Content)
}

// pathParam 取出并解码一个路径参数
// chi 在 RawPath 非空时 (%2F, %2E%2E 这类非默认转义) 按原始文本匹配，
// 此时必须解码后再交给 Segment 校验；否则参数已经是解码后的值
func pathParam(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return raw, nil
	}
	value, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not a valid escape sequence", types.ErrInvalidSegment, raw)
	}
	return value, nil
}

func artifactParams(r *http.Request) (string, string, error) {
	repo, err := pathParam(r, "repository")
	if err != nil {
		return "", "", err
	}
	idn, err := pathParam(r, "idn")
	if err != nil {
		return "", "", err
	}
	return repo, idn, nil
}

func writeNameList(w http.ResponseWriter, r *http.Request, names []string) {
	data, err := manifest.RenderNameList(names)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypeXML)
	w.Write(data)
}

// writeError 把领域错误映射为 HTTP 状态码
// 文件系统错误在 storage 层已经被翻译成 ErrNotFound，这里不会变成 500
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("err", err.Error()),
		)
		http.Error(w, "internal server error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, storage.ErrOutOfRange),
		errors.Is(err, snapshot.ErrSnapshotNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidSegment):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotImplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
