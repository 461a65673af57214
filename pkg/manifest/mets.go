package manifest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mockils/pkg/storage"
	"mockils/pkg/types"
)

const (
	NamespaceMETS   = "http://www.loc.gov/METS/"
	NamespaceXSI    = "http://www.w3.org/2001/XMLSchema-instance"
	NamespaceXLink  = "http://www.w3.org/1999/xlink"
	SchemaLocation  = "http://www.loc.gov/METS/ http://www.loc.gov/standards/mets/mets.xsd"
	CreatorName     = "MockILS"
	RecordStatus    = "draft"
	AltRecordSnapID = "SNAPSHOT"
)

// METS 是 METS 标准的一个极小子集，只覆盖 fileSec
type METS struct {
	XMLName        xml.Name  `xml:"http://www.loc.gov/METS/ mets"`
	XSI            string    `xml:"xmlns:xsi,attr"`
	XLink          string    `xml:"xmlns:xlink,attr"`
	SchemaLocation string    `xml:"xsi:schemaLocation,attr"`
	Header         Header    `xml:"metsHdr"`
	FileSec        FileSec   `xml:"fileSec"`
	StructMap      StructMap `xml:"structMap"`
}

type Header struct {
	CreateDate   string       `xml:"CREATEDATE,attr"`
	RecordStatus string       `xml:"RECORDSTATUS,attr"`
	Agent        Agent        `xml:"agent"`
	AltRecordID  *AltRecordID `xml:"altRecordID,omitempty"`
}

type Agent struct {
	Role string `xml:"ROLE,attr"`
	Type string `xml:"TYPE,attr"`
	Name string `xml:"name"`
}

// AltRecordID 携带 snapshot id，客户端取对象时可以回传
type AltRecordID struct {
	Type  string `xml:"TYPE,attr"`
	Value string `xml:",chardata"`
}

type FileSec struct {
	FileGrp FileGrp `xml:"fileGrp"`
}

type FileGrp struct {
	Files []File `xml:"file"`
}

type File struct {
	ID       string `xml:"ID,attr"`
	MIMEType string `xml:"MIMETYPE,attr,omitempty"`
	Created  string `xml:"CREATED,attr"`
	Size     string `xml:"SIZE,attr"`
	FLocat   FLocat `xml:"FLocat"`
}

type FLocat struct {
	LocType string `xml:"LOCTYPE,attr"`
	Href    string `xml:"xlink:href,attr"`
}

type StructMap struct {
	Div struct{} `xml:"div"`
}

var fallbackTypes = map[string]string{
	".txt":  "text/plain",
	".csv":  "text/csv",
	".md":   "text/markdown",
	".warc": "application/warc",
	".arc":  "application/x-internet-archive",
	".gz":   "application/gzip",
	".zip":  "application/zip",
	".tar":  "application/x-tar",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".jp2":  "image/jp2",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".mp4":  "video/mp4",
}

// Options 控制 manifest 渲染
type Options struct {
	// Now 返回渲染时刻，测试时可替换；为空则使用 time.Now
	Now func() time.Time

	// Snapshot 非空时写入 metsHdr/altRecordID
	Snapshot types.SnapshotID
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// build 把对象列表映射为 METS 结构
// ID 就是输入序列中的位置，与 oid 的稳定性无关
func build(files []storage.Object, opts Options) *METS {
	created := opts.now().Format(time.RFC3339Nano)

	doc := &METS{
		XSI:            NamespaceXSI,
		XLink:          NamespaceXLink,
		SchemaLocation: SchemaLocation,
		Header: Header{
			CreateDate:   created,
			RecordStatus: RecordStatus,
			Agent: Agent{
				Role: "CREATOR",
				Type: "ORGANIZATION",
				Name: CreatorName,
			},
		},
	}
	if !opts.Snapshot.IsZero() {
		doc.Header.AltRecordID = &AltRecordID{Type: AltRecordSnapID, Value: opts.Snapshot.String()}
	}

	doc.FileSec.FileGrp.Files = make([]File, 0, len(files))
	for id, f := range files {
		doc.FileSec.FileGrp.Files = append(doc.FileSec.FileGrp.Files, File{
			ID:       strconv.Itoa(id),
			MIMEType: GuessMIMEType(f.Name),
			Created:  created,
			Size:     strconv.FormatInt(f.Size, 10),
			FLocat:   FLocat{LocType: "URL", Href: f.Name},
		})
	}
	return doc
}

// RenderManifest 渲染 METS manifest，带 XML 声明
func RenderManifest(files []storage.Object, opts Options) ([]byte, error) {
	return encode(build(files, opts))
}

// GuessMIMEType 根据扩展名猜测 MIME 类型，去掉 charset 等参数
// 未知扩展名返回空字符串
func GuessMIMEType(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return ""
	}
	full := mime.TypeByExtension(ext)
	if full == "" {
		// 标准库内置表很小，其余依赖 /etc/mime.types，这里补上仓库里常见的类型
		return fallbackTypes[strings.ToLower(ext)]
	}
	mediaType, _, err := mime.ParseMediaType(full)
	if err != nil {
		return full
	}
	return mediaType
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode xml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
