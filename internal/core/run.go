package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/jbiason/downfav/internal/config"
	"github.com/jbiason/downfav/internal/mastodon"
	"github.com/jbiason/downfav/internal/network"
	"github.com/jbiason/downfav/internal/storage"
)

// fetchTarget は、名前解決済みの取得対象アカウントです。
type fetchTarget struct {
	name    string
	account *config.AccountConfig
}

// RunFetch は、指定された全アカウントの取得パスを実行します。
// アカウント名は1件でも解決できなければゴルーチンを起動する前にエラーを返します
// (途中で中断すると、走り出した取得の結果が失われるため)。
// アカウントごとの処理はセマフォで同時実行数を制限したゴルーチンで行い、
// 成功したアカウントのウォーターマークを設定オブジェクトへ反映します。
// 設定ファイルへの保存は呼び出し側が実行終了時に一度だけ行います。
func RunFetch(ctx context.Context, cfg *config.Config, accounts []string, stats *SessionStats) error {
	// 取得を始める前に全アカウント名を解決する
	var targets []fetchTarget
	for _, name := range accounts {
		account, err := cfg.Account(name)
		if err != nil {
			return fmt.Errorf("アカウントの解決に失敗しました (account=%s): %w", name, err)
		}
		if !account.HasStorage() {
			log.Printf("WARNING: アカウント %s にはストレージが設定されていないため、スキップします。", name)
			continue
		}
		targets = append(targets, fetchTarget{name: name, account: account})
	}

	client := network.NewClient(cfg.Network)

	maxConcurrent := cfg.Network.MaxConcurrentAccounts
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	semaphore := make(chan struct{}, maxConcurrent)

	var wg sync.WaitGroup
	var resultsMutex sync.Mutex
	watermarks := make(map[string]string)
	var runErrors []error

	for _, target := range targets {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(name string, account *config.AccountConfig) {
			defer wg.Done()
			defer func() { <-semaphore }()

			logger := log.New(os.Stdout, fmt.Sprintf("[%s] ", name), log.LstdFlags)
			logger.Println("お気に入りの取得を開始します。")

			newWatermark, err := fetchOneAccount(ctx, name, account, client, logger, stats)

			resultsMutex.Lock()
			defer resultsMutex.Unlock()
			if err != nil {
				runErrors = append(runErrors, err)
				logger.Printf("ERROR: アカウントの処理に失敗しました: %v", err)
				return
			}
			watermarks[name] = newWatermark
			if stats != nil {
				stats.AddAccount()
			}
			logger.Println("お気に入りの取得が完了しました。")
		}(target.name, target.account)
	}

	wg.Wait()

	for name, watermark := range watermarks {
		if err := cfg.SetFavourite(name, watermark); err != nil {
			runErrors = append(runErrors, fmt.Errorf("ウォーターマークの反映に失敗しました (account=%s): %w", name, err))
		}
	}

	return errors.Join(runErrors...)
}

// fetchOneAccount は、単一アカウントのストレージ構築と取得パスを実行し、
// 新しいウォーターマークを返します。
func fetchOneAccount(ctx context.Context, name string, account *config.AccountConfig, client *network.Client, logger *log.Logger, stats *SessionStats) (string, error) {
	storages, err := storage.ForAccount(ctx, account, client)
	if err != nil {
		return "", fmt.Errorf("ストレージの構築に失敗しました (account=%s): %w", name, err)
	}

	source := mastodon.NewClient(account.Mastodon).Favourites()
	result, err := FetchAccount(ctx, name, source, storages, account.Favourite.Last, logger, stats)
	if err != nil {
		return "", err
	}
	if result.SaveFailures > 0 {
		return "", fmt.Errorf("保存に失敗したお気に入りがあります (account=%s, failures=%d)。ウォーターマークは据え置きます", name, result.SaveFailures)
	}
	logger.Printf("%d件のお気に入りを処理しました。", result.Fetched)
	return result.NewWatermark, nil
}

// SyncAccount は、アカウントのウォーターマークをフィードの最新の
// お気に入りIDへ進めます。過去分はアーカイブせず、以後の実行の
// 起点だけを「今」に合わせるための操作です。呼び出し側が設定を保存します。
func SyncAccount(ctx context.Context, cfg *config.Config, name string) error {
	account, err := cfg.Account(name)
	if err != nil {
		return fmt.Errorf("アカウントの解決に失敗しました (account=%s): %w", name, err)
	}

	source := mastodon.NewClient(account.Mastodon).Favourites()
	record, err := source.Next(ctx)
	if errors.Is(err, io.EOF) {
		log.Printf("アカウント %s にはお気に入りがありません。ウォーターマークは変更しません。", name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("お気に入りの取得に失敗しました (account=%s): %w", name, err)
	}

	if err := cfg.SetFavourite(name, record.ID); err != nil {
		return err
	}
	log.Printf("アカウント %s のウォーターマークを %s に設定しました。", name, record.ID)
	return nil
}
