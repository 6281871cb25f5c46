// Package render は、投稿本文(HTMLフラグメント)をストレージバックエンドの
// マークアップ(MarkdownまたはOrg)へ変換するテキストレンダラーを提供します。
package render

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/jbiason/downfav/internal/model"
)

// Markdown は、RecordをMarkdownテキストに変換します。
// タイトル(CW)があれば本文の前に、元投稿のURLがあれば本文の後に、
// それぞれ空行で区切って配置します。
func Markdown(record *model.Record) (string, error) {
	converter := md.NewConverter("", true, nil)
	body, err := converter.ConvertString(record.Text)
	if err != nil {
		return "", fmt.Errorf("HTMLからMarkdownへの変換に失敗しました (record_id=%s): %w", record.ID, err)
	}

	return frame(record.Title, strings.TrimSpace(body), record.Source), nil
}

// frame は、タイトル・本文・ソースURLを空行区切りで結合します。
// タイトルとソースが共に空の場合、本文以外の区切りは一切追加しません。
func frame(title string, body string, source string) string {
	var b strings.Builder
	if title != "" {
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	b.WriteString(body)
	if source != "" {
		b.WriteString("\n\n")
		b.WriteString(source)
	}
	return b.String()
}
