package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jbiason/downfav/internal/config"
	"github.com/jbiason/downfav/internal/model"
)

func TestOrgSave_CreatesJournalWithHeader(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	storage := NewOrg(config.OrgConfig{Path: dir}, newTestClient())

	record := &model.Record{
		ID:      "42",
		Account: "alice",
		Text:    "<p>hello org</p>",
	}

	// Act
	if err := storage.Save(context.Background(), record); err != nil {
		t.Fatalf("Saveでエラーが発生しました: %v", err)
	}

	// Assert
	journal := filepath.Join(dir, time.Now().Format("20060102")+".org")
	content, err := os.ReadFile(journal)
	if err != nil {
		t.Fatalf("ジャーナルの読み込みに失敗しました: %v", err)
	}
	text := string(content)

	expectedHeader := "#+title: Favourites from " + time.Now().Format("2006-01-02")
	if !strings.HasPrefix(text, expectedHeader) {
		t.Errorf("ジャーナルヘッダが一致しません: 実際値=%q", text)
	}
	if !strings.Contains(text, "* alice/42\n  hello org") {
		t.Errorf("見出しブロックが含まれていません: 実際値=%q", text)
	}
}

func TestOrgSave_AppendsToExistingJournal(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	storage := NewOrg(config.OrgConfig{Path: dir}, newTestClient())

	first := &model.Record{ID: "1", Account: "alice", Text: "<p>first</p>"}
	second := &model.Record{ID: "2", Account: "alice", Text: "<p>second</p>"}

	// Act
	if err := storage.Save(context.Background(), first); err != nil {
		t.Fatalf("1件目のSaveでエラーが発生しました: %v", err)
	}
	if err := storage.Save(context.Background(), second); err != nil {
		t.Fatalf("2件目のSaveでエラーが発生しました: %v", err)
	}

	// Assert: ヘッダは1回のみ、見出しは2件
	content, err := os.ReadFile(filepath.Join(dir, time.Now().Format("20060102")+".org"))
	if err != nil {
		t.Fatalf("ジャーナルの読み込みに失敗しました: %v", err)
	}
	text := string(content)

	if strings.Count(text, "#+title:") != 1 {
		t.Errorf("ヘッダが複数回書き込まれています: %q", text)
	}
	firstIndex := strings.Index(text, "* alice/1")
	secondIndex := strings.Index(text, "* alice/2")
	if firstIndex < 0 || secondIndex < 0 {
		t.Fatalf("見出しが不足しています: %q", text)
	}
	if firstIndex > secondIndex {
		t.Errorf("見出しの追記順が逆転しています: %q", text)
	}
}

func TestOrgSave_Attachments(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("org attachment"))
	}))
	defer server.Close()

	dir := t.TempDir()
	storage := NewOrg(config.OrgConfig{Path: dir}, newTestClient())

	record := &model.Record{
		ID:      "9",
		Account: "bob",
		Text:    "<p>with media</p>",
		Attachments: []model.Attachment{
			{URL: server.URL + "/image.png"},
		},
	}

	// Act
	if err := storage.Save(context.Background(), record); err != nil {
		t.Fatalf("Saveでエラーが発生しました: %v", err)
	}

	// Assert: <投稿ID>-<ファイル名> でダウンロードされ、リンク行が追記される
	local := filepath.Join(dir, "9-image.png")
	data, err := os.ReadFile(local)
	if err != nil {
		t.Fatalf("添付ファイルの読み込みに失敗しました: %v", err)
	}
	if string(data) != "org attachment" {
		t.Errorf("添付ファイルの内容が一致しません: %q", string(data))
	}

	content, err := os.ReadFile(filepath.Join(dir, time.Now().Format("20060102")+".org"))
	if err != nil {
		t.Fatalf("ジャーナルの読み込みに失敗しました: %v", err)
	}
	if !strings.Contains(string(content), "  - [[file:9-image.png]]\n") {
		t.Errorf("添付リンクの箇条書きが含まれていません: %q", string(content))
	}
}
