// Package model は、リモートの投稿を正規化した内部表現(Record)と、
// 添付メディア(Attachment)の定義を提供します。ストレージバックエンドに
// 依存しない、純粋なデータ構造のみを持ちます。
package model

import (
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Record は、アーカイブ対象となる単一のお気に入り投稿を表します。
// 取得パスごとに一度だけ構築され、以降は変更されません。
type Record struct {
	ID          string       // リモートアカウント内で一意な投稿ID
	Account     string       // リモートアカウントのハンドル (保存時の名前空間キー)
	Title       string       // CW(閲覧注意)テキスト。空文字列は「タイトルなし」
	Text        string       // 投稿本文 (レンダリング前のHTML)
	Attachments []Attachment // 添付メディア (フィード上の順序を維持)
	Source      string       // 元投稿の正規URL。空の場合あり
}

// Attachment は、単一のリモートメディアファイルをURLで参照します。
// バイト列の取得は各ストレージバックエンドが独立して行います。
type Attachment struct {
	URL string
}

// Filename は、URLのパス末尾からクエリ文字列を除いたファイル名を導出します。
// Unicode結合文字の揺れを避けるためNFC正規化し、ファイルシステムで
// 使用できない文字を全角に置換します。
func (a Attachment) Filename() string {
	name := a.URL
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "?"); i >= 0 {
		name = name[:i]
	}
	return sanitizeFilename(norm.NFC.String(name))
}

// UniqueFilenames は、Record内の全添付ファイル名を添付順に返します。
// 同一投稿内でベース名が衝突した場合、2つ目以降には拡張子の前に
// 連番サフィックスを付与します (name.png, name-1.png, ...)。
func (r *Record) UniqueFilenames() []string {
	seen := make(map[string]int, len(r.Attachments))
	names := make([]string, 0, len(r.Attachments))

	for _, attachment := range r.Attachments {
		name := attachment.Filename()
		count := seen[name]
		seen[name] = count + 1

		if count > 0 {
			ext := filepath.Ext(name)
			base := strings.TrimSuffix(name, ext)
			name = base + "-" + strconv.Itoa(count) + ext
		}
		names = append(names, name)
	}
	return names
}

func sanitizeFilename(name string) string {
	r := strings.NewReplacer(
		"\\", "＼",
		":", "：",
		"*", "＊",
		"\"", "”",
		"<", "＜",
		">", "＞",
		"|", "｜",
	)
	return r.Replace(name)
}
