package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/jbiason/downfav/internal/model"
	"github.com/jbiason/downfav/internal/storage"
)

// FavouriteSource は、お気に入りを新しい順に1件ずつ供給します。
// 供給し尽くした場合は io.EOF を返します。
type FavouriteSource interface {
	Next(ctx context.Context) (*model.Record, error)
}

// FetchResult は、単一アカウントの取得パスの結果です。
type FetchResult struct {
	// NewWatermark は、次回の実行で使うべきウォーターマークです。
	// 進められなかった場合は実行前の値がそのまま入ります。
	NewWatermark string
	Fetched      int // アーカイブを試みたお気に入り数
	SaveFailures int // いずれかのストレージで失敗した保存回数
}

// FetchAccount は、単一アカウントのお気に入りを新しい順に走査し、
// ウォーターマーク(前回アーカイブ済みの最新ID)に到達するまで
// 各Recordを全ストレージへ保存します。
//
// ウォーターマーク候補は走査で最初に見たID(=フィードの最新)です。
// 候補への更新は、走査がフィード由来のエラーなしに完了し、かつ
// 保存失敗がゼロ件だった場合にのみ行います。失敗があった場合は
// ウォーターマークを据え置き、次回の実行で同じRecordを再処理します。
func FetchAccount(ctx context.Context, name string, source FavouriteSource, storages []storage.Storage, watermark string, logger *log.Logger, stats *SessionStats) (*FetchResult, error) {
	result := &FetchResult{NewWatermark: watermark}
	candidate := ""

	for {
		record, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// フィード取得の失敗は走査全体を中断し、ウォーターマークは進めない
			return result, fmt.Errorf("お気に入りの取得に失敗しました (account=%s): %w", name, err)
		}

		if watermark != "" && record.ID == watermark {
			break
		}
		if candidate == "" {
			candidate = record.ID
		}

		result.Fetched++
		logger.Printf("お気に入り %s/%s を保存します...", record.Account, record.ID)

		saved := true
		for _, backend := range storages {
			if err := backend.Save(ctx, record); err != nil {
				logger.Printf("ERROR: ストレージへの保存に失敗しました (storage=%s, id=%s): %v", backend.Name(), record.ID, err)
				result.SaveFailures++
				saved = false
				if stats != nil {
					stats.AddSaveFailure()
				}
			}
		}
		if saved && stats != nil {
			stats.AddRecord(len(record.Attachments))
		}
	}

	if result.SaveFailures == 0 && candidate != "" {
		result.NewWatermark = candidate
	}
	return result, nil
}
