package security

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractText はマークアップを含む可能性のある文字列からテキストのみを抽出する。
// 自由テキスト検索の照合対象として使用する（タグ名や属性にはマッチさせない）。
// script/style要素の中身は捨てる。パースに失敗した場合は入力をそのまま返す。
func ExtractText(raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.ContainsRune(raw, '<') {
		return raw
	}

	node, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return raw
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)

	return strings.Join(strings.Fields(b.String()), " ")
}
