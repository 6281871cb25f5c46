package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jbiason/downfav/internal/config"
	"github.com/jbiason/downfav/internal/model"
	"github.com/jbiason/downfav/internal/network"
	"github.com/jbiason/downfav/internal/render"
)

const tootFilename = "toot.md"

// Markdown は、Recordをローカルファイルシステム上の
// <base>/<アカウント名>/<投稿ID>/ ディレクトリにMarkdownとして保存します。
type Markdown struct {
	basePath string
	client   *network.Client
}

// NewMarkdown は、Markdownストレージを生成します。
func NewMarkdown(cfg config.MarkdownConfig, client *network.Client) *Markdown {
	return &Markdown{
		basePath: cfg.Path,
		client:   client,
	}
}

// Name は、バックエンド識別子を返します。
func (s *Markdown) Name() string {
	return "markdown"
}

// Save は、Record専用ディレクトリを作成し、本文をtoot.mdとして書き込み、
// 全添付ファイルを同ディレクトリへダウンロードします。
// 途中で失敗した場合は即座に中断し、部分的な成果物はそのまま残ります。
func (s *Markdown) Save(ctx context.Context, record *model.Record) error {
	dir := filepath.Join(s.basePath, record.Account, record.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("保存先ディレクトリの作成に失敗しました (dir=%s): %w", dir, err)
	}

	content, err := render.Markdown(record)
	if err != nil {
		return fmt.Errorf("Markdownへの変換に失敗しました (id=%s): %w", record.ID, err)
	}
	tootPath := filepath.Join(dir, tootFilename)
	if err := os.WriteFile(tootPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("本文ファイルの書き込みに失敗しました (path=%s): %w", tootPath, err)
	}

	names := record.UniqueFilenames()
	for i, attachment := range record.Attachments {
		if attachment.URL == "" || names[i] == "" {
			continue
		}
		dest := filepath.Join(dir, names[i])
		if _, err := s.client.DownloadToFile(ctx, attachment.URL, dest); err != nil {
			return fmt.Errorf("添付ファイルのダウンロードに失敗しました (url=%s): %w", attachment.URL, err)
		}
	}

	return nil
}
