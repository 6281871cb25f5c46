// Package mastodon は、リモートフィード(Mastodon互換サーバー)への接続を提供します。
// お気に入り一覧の遅延ページネーション、対話的なアカウント登録(OAuth)、
// リモート投稿から内部表現(Record)への変換を担当します。
package mastodon

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-mastodon"

	"github.com/jbiason/downfav/internal/config"
	"github.com/jbiason/downfav/internal/model"
)

// redirectURI は、アウトオブバンド(手動コピー)の認可コードフローを指定します。
const redirectURI = "urn:ietf:wg:oauth:2.0:oob"

// Client は、単一アカウントのリモートサーバーへの接続です。
type Client struct {
	api *mastodon.Client
}

// NewClient は、保存済みの資格情報から接続を構築します。
func NewClient(credentials config.MastodonCredentials) *Client {
	return &Client{
		api: mastodon.NewClient(&mastodon.Config{
			Server:       credentials.Server,
			ClientID:     credentials.ClientID,
			ClientSecret: credentials.ClientSecret,
			AccessToken:  credentials.AccessToken,
		}),
	}
}

// Favourites は、お気に入りフィードを新しい順に走査するカーソルを返します。
// ページはサーバーが「次ページなし」を報告するまで遅延取得されます。
func (c *Client) Favourites() *FavouritesCursor {
	return &FavouritesCursor{api: c.api}
}

// FavouritesCursor は、ページネーションされたお気に入りフィードのカーソルです。
// Nextがio.EOFを返した時点でフィードは尽きています。
type FavouritesCursor struct {
	api        *mastodon.Client
	pagination mastodon.Pagination
	buffer     []*mastodon.Status
	started    bool
	done       bool
}

// Next は、フィードの次の投稿をRecordに変換して返します。
// フィードが尽きた場合はio.EOFを返します。
func (c *FavouritesCursor) Next(ctx context.Context) (*model.Record, error) {
	for len(c.buffer) == 0 {
		if c.done {
			return nil, io.EOF
		}
		if c.started && c.pagination.MaxID == "" {
			c.done = true
			return nil, io.EOF
		}

		// 前ページのLinkヘッダで設定されたSinceID/MinIDは次ページ取得の妨げになるため消す
		c.pagination.SinceID = ""
		c.pagination.MinID = ""

		statuses, err := c.api.GetFavourites(ctx, &c.pagination)
		if err != nil {
			return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
		}
		c.started = true

		if len(statuses) == 0 {
			c.done = true
			return nil, io.EOF
		}
		c.buffer = statuses
	}

	status := c.buffer[0]
	c.buffer = c.buffer[1:]
	record := recordFromStatus(status)
	return &record, nil
}

// recordFromStatus は、リモート投稿をRecordへ正規化します。
// 純粋なデータマッピングであり失敗しません。欠けているフィールドは
// 空文字列に縮退します。
func recordFromStatus(status *mastodon.Status) model.Record {
	attachments := make([]model.Attachment, 0, len(status.MediaAttachments))
	for _, media := range status.MediaAttachments {
		url := media.URL
		if url == "" {
			url = media.RemoteURL
		}
		attachments = append(attachments, model.Attachment{URL: url})
	}

	return model.Record{
		ID:          string(status.ID),
		Account:     status.Account.Acct,
		Title:       status.SpoilerText,
		Text:        status.Content,
		Attachments: attachments,
		Source:      status.URL,
	}
}

// Register は、対話的にアカウントを登録します。サーバーにアプリケーションを
// 登録し、認可URLを表示して認可コードの入力を待ち、アクセストークンに
// 交換して資格情報を返します。
func Register(ctx context.Context, server string, in io.Reader, out io.Writer) (config.MastodonCredentials, error) {
	server = strings.TrimRight(strings.TrimSpace(server), "/")

	app, err := mastodon.RegisterApp(ctx, &mastodon.AppConfig{
		Server:       server,
		ClientName:   "Downfav",
		Scopes:       "read",
		RedirectURIs: redirectURI,
	})
	if err != nil {
		return config.MastodonCredentials{}, fmt.Errorf("アプリケーションの登録に失敗しました (server=%s): %w", server, err)
	}

	fmt.Fprintf(out, "以下のURLをブラウザで開き、認可コードを取得してください:\n%s\n", app.AuthURI)
	fmt.Fprint(out, "認可コード: ")

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return config.MastodonCredentials{}, fmt.Errorf("認可コードの読み取りに失敗しました: %w", err)
		}
		return config.MastodonCredentials{}, fmt.Errorf("認可コードが入力されませんでした")
	}
	code := strings.TrimSpace(scanner.Text())
	if code == "" {
		return config.MastodonCredentials{}, fmt.Errorf("認可コードが入力されませんでした")
	}

	client := mastodon.NewClient(&mastodon.Config{
		Server:       server,
		ClientID:     app.ClientID,
		ClientSecret: app.ClientSecret,
	})
	if err := client.AuthenticateToken(ctx, code, redirectURI); err != nil {
		return config.MastodonCredentials{}, fmt.Errorf("アクセストークンへの交換に失敗しました: %w", err)
	}

	return config.MastodonCredentials{
		Server:       server,
		ClientID:     app.ClientID,
		ClientSecret: app.ClientSecret,
		AccessToken:  client.Config.AccessToken,
	}, nil
}
