package manifest

import "encoding/xml"

// NameList 是最简单的列表容器: <list><value>name</value>...</list>
type NameList struct {
	XMLName xml.Name `xml:"list"`
	Values  []string `xml:"value"`
}

// RenderNameList 保持输入顺序，每个名字一个 <value>
func RenderNameList(names []string) ([]byte, error) {
	return encode(NameList{Values: names})
}
