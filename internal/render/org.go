package render

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jbiason/downfav/internal/model"
)

// Org は、RecordをOrg-modeテキストに変換します。
// 本文は独自のHTMLウォーカーで変換し、タイトル(CW)とソースURLは
// Markdown版と同じ枠組み(空行区切り)で配置します。ソースURLは
// Orgのリンク記法 [[url]] で出力します。
func Org(record *model.Record) (string, error) {
	body, err := orgFromHTML(record.Text)
	if err != nil {
		return "", fmt.Errorf("HTMLからOrgへの変換に失敗しました (record_id=%s): %w", record.ID, err)
	}

	source := record.Source
	if source != "" {
		source = "[[" + source + "]]"
	}
	return frame(record.Title, strings.TrimRight(body, " \n"), source), nil
}

// orgFromHTML は、HTMLフラグメントをDOMツリーに解析し、深さ優先・行きがけ順の
// 走査でOrgマークアップを生成します。タグごとの扱いは次の通りです:
//
//   - html/head/body: 透過 (子要素のみ処理)
//   - p/br: 子要素を処理した後、段落区切り(改行2つ+インデント2スペース)を出力
//   - span class~="ellipsis": 子要素の後にリテラル "..." を追加
//   - span class~="invisible": 完全にスキップ (URLの省略表示用マークアップ)
//   - a rel~="tag" (ハッシュタグリンク): リンクを剥がして内容のみ出力
//   - a (href付き): Orgのリンク記法 [[href][内容]] で出力
//   - その他の要素: 出力なしで子要素へ再帰。テキストノードはそのまま出力
//
// 属性の照合は大文字小文字を区別する部分一致です。
func orgFromHTML(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, node := range doc.Selection.Nodes {
		b.WriteString(walkOrg(node))
	}
	return b.String(), nil
}

// walkOrg は、単一ノードのOrg表現を返します。共有の可変アキュムレータは使わず、
// 各ノードが自身のフラグメントを返し、呼び出し側が連結します。
func walkOrg(node *html.Node) string {
	if node.Type == html.TextNode {
		return node.Data
	}
	if node.Type != html.ElementNode {
		return walkOrgChildren(node)
	}

	switch node.Data {
	case "html", "head", "body":
		return walkOrgChildren(node)

	case "p", "br":
		content := walkOrgChildren(node)
		if node.Data == "p" && strings.TrimSpace(content) == "" {
			// 空段落に区切りを重ねない
			return content
		}
		return content + "\n\n  "

	case "span":
		class := attrValue(node, "class")
		if strings.Contains(class, "ellipsis") {
			return walkOrgChildren(node) + "..."
		}
		if strings.Contains(class, "invisible") {
			return ""
		}
		return walkOrgChildren(node)

	case "a":
		if strings.Contains(attrValue(node, "rel"), "tag") {
			return walkOrgChildren(node)
		}
		if href := attrValue(node, "href"); href != "" {
			return "[[" + href + "][" + walkOrgChildren(node) + "]]"
		}
		return walkOrgChildren(node)

	default:
		return walkOrgChildren(node)
	}
}

func walkOrgChildren(node *html.Node) string {
	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(walkOrg(child))
	}
	return b.String()
}

func attrValue(node *html.Node, name string) string {
	for _, attr := range node.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}
