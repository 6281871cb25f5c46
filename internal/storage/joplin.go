package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/jbiason/downfav/internal/config"
	"github.com/jbiason/downfav/internal/model"
	"github.com/jbiason/downfav/internal/network"
	"github.com/jbiason/downfav/internal/render"
)

// joplinFolder は、Joplin API /folders が返すノートブック1件です。
type joplinFolder struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// joplinFolderPage は、/folders のページネーション付きレスポンスです。
type joplinFolderPage struct {
	Items   []joplinFolder `json:"items"`
	HasMore bool           `json:"has_more"`
}

// joplinResource は、/resources へのアップロード結果です。
type joplinResource struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Joplin は、ローカルで稼働するJoplinのWeb Clipper APIへRecordをノートとして
// 登録します。対象ノートブックのIDは構築時に一度だけ解決します。
type Joplin struct {
	host     string
	port     int
	token    string
	folderID string
	client   *network.Client
}

// NewJoplin は、Joplinストレージを生成します。/folders をページネーションで
// 走査して設定されたノートブック名をIDへ解決し、見つからない場合は
// ErrNotebookNotFound を返します(Recordの処理前に失敗させる)。
func NewJoplin(ctx context.Context, cfg config.JoplinConfig, client *network.Client) (*Joplin, error) {
	return newJoplinAt(ctx, cfg, client, "localhost")
}

func newJoplinAt(ctx context.Context, cfg config.JoplinConfig, client *network.Client, host string) (*Joplin, error) {
	joplin := &Joplin{
		host:   host,
		port:   cfg.Port,
		token:  cfg.Token,
		client: client,
	}

	folderID, err := joplin.resolveFolder(ctx, cfg.Folder)
	if err != nil {
		return nil, err
	}
	joplin.folderID = folderID
	return joplin, nil
}

// Name は、バックエンド識別子を返します。
func (s *Joplin) Name() string {
	return "joplin"
}

// resolveFolder は、ノートブック名をJoplin内部のIDへ解決します。
func (s *Joplin) resolveFolder(ctx context.Context, name string) (string, error) {
	for page := 1; ; page++ {
		pageURL := fmt.Sprintf("%s&page=%d", s.endpoint("folders"), page)
		var folders joplinFolderPage
		if err := s.client.GetJSON(ctx, pageURL, &folders); err != nil {
			return "", fmt.Errorf("ノートブック一覧の取得に失敗しました (page=%d): %w", page, err)
		}
		for _, folder := range folders.Items {
			if folder.Title == name {
				return folder.ID, nil
			}
		}
		if !folders.HasMore {
			return "", fmt.Errorf("ノートブックの解決に失敗しました (folder=%s): %w", name, ErrNotebookNotFound)
		}
	}
}

// Save は、添付ファイルをリソースとしてアップロードした後、
// Markdown本文の末尾にリソースリンクを連結してノートを作成します。
func (s *Joplin) Save(ctx context.Context, record *model.Record) error {
	text, err := render.Markdown(record)
	if err != nil {
		return fmt.Errorf("Markdownへの変換に失敗しました (id=%s): %w", record.ID, err)
	}

	names := record.UniqueFilenames()
	for i, attachment := range record.Attachments {
		if attachment.URL == "" || names[i] == "" {
			continue
		}
		resource, err := s.uploadResource(ctx, attachment.URL, names[i])
		if err != nil {
			return err
		}
		text += "\n\n" + resourceLink(names[i], resource.ID)
	}

	note := map[string]string{
		"parent_id":  s.folderID,
		"title":      record.Account + "/" + record.ID,
		"body":       text,
		"source_url": record.Source,
	}
	if err := s.client.PostJSON(ctx, s.endpoint("notes"), note, nil); err != nil {
		return fmt.Errorf("ノートの作成に失敗しました (id=%s): %w", record.ID, err)
	}

	return nil
}

// uploadResource は、添付ファイルを取得してJoplinリソースとして登録します。
func (s *Joplin) uploadResource(ctx context.Context, remoteURL string, filename string) (*joplinResource, error) {
	data, err := s.client.Get(ctx, remoteURL)
	if err != nil {
		return nil, fmt.Errorf("添付ファイルの取得に失敗しました (url=%s): %w", remoteURL, err)
	}

	props, err := json.Marshal(map[string]string{"title": filename})
	if err != nil {
		return nil, fmt.Errorf("リソース属性のエンコードに失敗しました (filename=%s): %w", filename, err)
	}

	var resource joplinResource
	if err := s.client.PostMultipart(ctx, s.endpoint("resources"), filename, data, string(props), &resource); err != nil {
		return nil, fmt.Errorf("リソースのアップロードに失敗しました (filename=%s): %w", filename, err)
	}
	return &resource, nil
}

// endpoint は、トークン付きのAPIエンドポイントURLを組み立てます。
// トークンは予約文字を含み得るためクエリ用にエスケープします。
func (s *Joplin) endpoint(resource string) string {
	return fmt.Sprintf("http://%s:%d/%s?token=%s", s.host, s.port, resource, url.QueryEscape(s.token))
}

// resourceLink は、ノート本文に埋め込むリソースへのMarkdownリンクを返します。
// 画像はインライン表示の記法を使います。
func resourceLink(filename string, resourceID string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	link := fmt.Sprintf("[%s](:/%s)", filename, resourceID)
	switch ext {
	case "jpg", "jpeg", "png", "gif":
		return "!" + link
	}
	return link
}
