package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jbiason/downfav/internal/config"
	"github.com/jbiason/downfav/internal/model"
	"github.com/jbiason/downfav/internal/network"
	"github.com/jbiason/downfav/internal/render"
)

// Org は、Recordを日付ごとのOrg-modeジャーナルファイルへ追記します。
// ジャーナルのファイル名(YYYYMMDD.org)は構築時に一度だけ決定されるため、
// 日付をまたぐ実行でも同一ファイルに書き続けます。
type Org struct {
	dir     string
	journal string
	date    string
	client  *network.Client
}

// NewOrg は、Orgストレージを生成します。ジャーナル名は現在日付から導出します。
func NewOrg(cfg config.OrgConfig, client *network.Client) *Org {
	now := time.Now()
	return &Org{
		dir:     cfg.Path,
		journal: filepath.Join(cfg.Path, now.Format("20060102")+".org"),
		date:    now.Format("2006-01-02"),
		client:  client,
	}
}

// Name は、バックエンド識別子を返します。
func (s *Org) Name() string {
	return "org"
}

// Save は、ジャーナルへ見出しブロックを1件追記します。
// ジャーナルが未作成の場合はタイトルヘッダ付きで新規作成します。
// 添付ファイルは同ディレクトリへ <投稿ID>-<ファイル名> としてダウンロードし、
// 見出しの下にリンクの箇条書きを追記します。追記は非トランザクショナルであり、
// 途中で失敗した場合は書きかけのブロックが残ります。
func (s *Org) Save(ctx context.Context, record *model.Record) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("ジャーナルディレクトリの作成に失敗しました (dir=%s): %w", s.dir, err)
	}

	file, err := s.openJournal()
	if err != nil {
		return err
	}
	defer file.Close()

	body, err := render.Org(record)
	if err != nil {
		return fmt.Errorf("Orgへの変換に失敗しました (id=%s): %w", record.ID, err)
	}
	heading := fmt.Sprintf("* %s/%s\n  %s\n\n", record.Account, record.ID, body)
	if _, err := file.WriteString(heading); err != nil {
		return fmt.Errorf("ジャーナルへの追記に失敗しました (path=%s): %w", s.journal, err)
	}

	names := record.UniqueFilenames()
	wroteAttachment := false
	for i, attachment := range record.Attachments {
		if attachment.URL == "" || names[i] == "" {
			continue
		}
		local := record.ID + "-" + names[i]
		dest := filepath.Join(s.dir, local)
		if _, err := s.client.DownloadToFile(ctx, attachment.URL, dest); err != nil {
			return fmt.Errorf("添付ファイルのダウンロードに失敗しました (url=%s): %w", attachment.URL, err)
		}
		if _, err := file.WriteString(fmt.Sprintf("  - [[file:%s]]\n", local)); err != nil {
			return fmt.Errorf("添付リンクの追記に失敗しました (path=%s): %w", s.journal, err)
		}
		wroteAttachment = true
	}
	if wroteAttachment {
		if _, err := file.WriteString("\n"); err != nil {
			return fmt.Errorf("ジャーナルへの追記に失敗しました (path=%s): %w", s.journal, err)
		}
	}

	return nil
}

// openJournal は、追記用にジャーナルを開きます。
// 存在しない場合はタイトルヘッダを書き込んでから返します。
func (s *Org) openJournal() (*os.File, error) {
	if _, err := os.Stat(s.journal); os.IsNotExist(err) {
		file, err := os.OpenFile(s.journal, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("ジャーナルの作成に失敗しました (path=%s): %w", s.journal, err)
		}
		header := fmt.Sprintf("#+title: Favourites from %s\n\n", s.date)
		if _, err := file.WriteString(header); err != nil {
			file.Close()
			return nil, fmt.Errorf("ジャーナルヘッダの書き込みに失敗しました (path=%s): %w", s.journal, err)
		}
		return file, nil
	}

	file, err := os.OpenFile(s.journal, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("ジャーナルのオープンに失敗しました (path=%s): %w", s.journal, err)
	}
	return file, nil
}
