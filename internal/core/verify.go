package core

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// VerificationResult は、Markdownアーカイブの検証結果を表します。
type VerificationResult struct {
	TotalChecked   int
	TotalMissing   int
	MissingDetails []string
}

// VerifyMarkdown は、Markdownストレージの保存先を走査し、
// 本文ファイル(toot.md)が欠損または空の投稿ディレクトリを報告します。
// 保存の途中で中断された実行が残した不完全な成果物を見つけるための機能です。
func VerifyMarkdown(ctx context.Context, basePath string) (*VerificationResult, error) {
	result := &VerificationResult{}

	accounts, err := os.ReadDir(basePath)
	if err != nil {
		return nil, fmt.Errorf("アーカイブディレクトリの読み込みに失敗しました (path=%s): %w", basePath, err)
	}

	for _, accountEntry := range accounts {
		if !accountEntry.IsDir() {
			continue
		}
		accountDir := filepath.Join(basePath, accountEntry.Name())
		posts, err := os.ReadDir(accountDir)
		if err != nil {
			return nil, fmt.Errorf("アカウントディレクトリの読み込みに失敗しました (path=%s): %w", accountDir, err)
		}

		for _, postEntry := range posts {
			if !postEntry.IsDir() {
				continue
			}

			select {
			case <-ctx.Done():
				return result, ctx.Err()
			default:
			}

			result.TotalChecked++
			tootPath := filepath.Join(accountDir, postEntry.Name(), "toot.md")
			content, err := os.ReadFile(tootPath)
			if err != nil || len(content) == 0 {
				result.TotalMissing++
				detail := fmt.Sprintf("[%s/%s] toot.md欠損または空", accountEntry.Name(), postEntry.Name())
				result.MissingDetails = append(result.MissingDetails, detail)
				log.Printf("WARNING: 投稿 %s/%s のtoot.mdが見つからないか空です", accountEntry.Name(), postEntry.Name())
			}
		}
	}

	return result, nil
}

// ReportVerification は、検証結果をログへ整形して出力します。
func ReportVerification(result *VerificationResult) {
	log.Println("========================================")
	log.Println("検証完了")
	log.Printf("チェック済み投稿数: %d", result.TotalChecked)
	log.Printf("欠損あり: %d", result.TotalMissing)
	if len(result.MissingDetails) > 0 {
		log.Println("詳細:")
		for _, detail := range result.MissingDetails {
			log.Println(detail)
		}
	}
	log.Println("========================================")
}
