// Package storage は、Recordの永続化先(ストレージバックエンド)を抽象化します。
// ファイルシステム/Markdown、Orgジャーナル、JoplinローカルAPIの3実装を持ち、
// アカウント設定から有効なバックエンド群を構築します。
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jbiason/downfav/internal/config"
	"github.com/jbiason/downfav/internal/model"
	"github.com/jbiason/downfav/internal/network"
)

// ErrNotebookNotFound は、Joplinに指定された名前のノートブックが
// 存在しない場合に返されます。復旧不可能な設定ミスです。
var ErrNotebookNotFound = errors.New("指定されたノートブックはJoplinに存在しません")

// Storage は、単一のRecordとその添付ファイルを永続化します。
// 失敗した場合、そのバックエンドにおける当該Recordの保存全体が中断されます
// (フェイルファスト)。バックエンド間の独立性はディスパッチャ側で保証します。
type Storage interface {
	// Name は、ログ出力用のバックエンド識別子を返します。
	Name() string
	// Save は、1件のRecordを永続化します。ネットワークおよび
	// ファイルシステムI/Oを行います。
	Save(ctx context.Context, record *model.Record) error
}

// ForAccount は、アカウント設定で有効化されている全ストレージを構築します。
// Joplinのノートブック解決など、復旧不可能な構築時エラーは即座に返します
// (Recordを1件も処理する前に失敗させる)。
func ForAccount(ctx context.Context, account *config.AccountConfig, client *network.Client) ([]Storage, error) {
	var storages []Storage

	if account.Markdown != nil {
		storages = append(storages, NewMarkdown(*account.Markdown, client))
	}
	if account.Org != nil {
		storages = append(storages, NewOrg(*account.Org, client))
	}
	if account.Joplin != nil {
		joplin, err := NewJoplin(ctx, *account.Joplin, client)
		if err != nil {
			return nil, fmt.Errorf("Joplinストレージの構築に失敗しました: %w", err)
		}
		storages = append(storages, joplin)
	}

	return storages, nil
}
