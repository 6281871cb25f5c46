package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writePost(t *testing.T, base string, account string, id string, body string) {
	t.Helper()
	dir := filepath.Join(base, account, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("テスト用ディレクトリの作成に失敗しました: %v", err)
	}
	if body != "" {
		if err := os.WriteFile(filepath.Join(dir, "toot.md"), []byte(body), 0644); err != nil {
			t.Fatalf("テスト用toot.mdの書き込みに失敗しました: %v", err)
		}
	}
}

func TestVerifyMarkdown(t *testing.T) {
	// Arrange: 正常な投稿1件、toot.md欠損1件、空のtoot.md1件
	base := t.TempDir()
	writePost(t, base, "alice", "1", "hello")
	writePost(t, base, "alice", "2", "")
	writePost(t, base, "bob", "3", "world")
	dir := filepath.Join(base, "bob", "4")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("テスト用ディレクトリの作成に失敗しました: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "toot.md"), nil, 0644); err != nil {
		t.Fatalf("空ファイルの作成に失敗しました: %v", err)
	}

	// Act
	result, err := VerifyMarkdown(context.Background(), base)

	// Assert
	if err != nil {
		t.Fatalf("VerifyMarkdownでエラーが発生しました: %v", err)
	}
	if result.TotalChecked != 4 {
		t.Errorf("チェック件数が一致しません: 期待値=4 実際値=%d", result.TotalChecked)
	}
	if result.TotalMissing != 2 {
		t.Errorf("欠損件数が一致しません: 期待値=2 実際値=%d", result.TotalMissing)
	}
}

func TestVerifyMarkdown_MissingBaseDir(t *testing.T) {
	_, err := VerifyMarkdown(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("存在しないディレクトリでエラーが返されませんでした")
	}
}
