package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigLoading(t *testing.T) {
	// 1. Arrange (準備)
	testConfigPath := filepath.Join("testdata", "test_config.toml")
	data, err := os.ReadFile(testConfigPath)
	if err != nil {
		t.Fatalf("テスト設定ファイル '%s' の読み込みに失敗しました: %v", testConfigPath, err)
	}

	// 2. Act (実行)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parseで予期せぬエラーが発生しました: %v", err)
	}

	// 3. Assert (検証)
	if len(cfg.Accounts) != 2 {
		t.Fatalf("アカウントの総数が期待値と異なります。期待値: 2, 実際値: %d", len(cfg.Accounts))
	}

	// --- 'alice'の検証 (Markdown + Joplin 併用) ---
	alice, err := cfg.Account("alice")
	if err != nil {
		t.Fatalf("アカウント'alice'の取得に失敗しました: %v", err)
	}
	if alice.Mastodon.Server != "https://example.social" {
		t.Errorf("alice: サーバーURLが不正です: %s", alice.Mastodon.Server)
	}
	if alice.Favourite.Last != "12345" {
		t.Errorf("alice: ウォーターマークが期待値と異なります。期待値: '12345', 実際値: '%s'", alice.Favourite.Last)
	}
	if alice.Markdown == nil || alice.Markdown.Path != "/tmp/favourites" {
		t.Errorf("alice: Markdownストレージ設定が不正です: %+v", alice.Markdown)
	}
	if alice.Joplin == nil {
		t.Fatal("alice: Joplinストレージ設定がnilであってはなりません。")
	}
	if alice.Joplin.Port != 41184 {
		t.Errorf("alice: Joplinポートが期待値と異なります。期待値: 41184, 実際値: %d", alice.Joplin.Port)
	}
	if alice.Org != nil {
		t.Errorf("alice: Orgストレージ設定はnilであるべきです。実際値: %+v", *alice.Org)
	}
	if !alice.HasStorage() {
		t.Error("alice: HasStorageはtrueを返すべきです。")
	}

	// --- 'bob'の検証 (空のウォーターマーク = 全件アーカイブ) ---
	bob, err := cfg.Account("bob")
	if err != nil {
		t.Fatalf("アカウント'bob'の取得に失敗しました: %v", err)
	}
	if bob.Favourite.Last != "" {
		t.Errorf("bob: ウォーターマークは空であるべきです。実際値: '%s'", bob.Favourite.Last)
	}
	if bob.Org == nil || bob.Org.Path != "/tmp/journal" {
		t.Errorf("bob: Orgストレージ設定が不正です: %+v", bob.Org)
	}

	// --- ネットワーク設定の検証 ---
	if cfg.Network.RequestTimeoutSeconds != 30 {
		t.Errorf("request_timeout_secondsが期待値と異なります。期待値: 30, 実際値: %d", cfg.Network.RequestTimeoutSeconds)
	}
	if cfg.Network.PerHostIntervalMillis["example.social"] != 500 {
		t.Errorf("per_host_interval_msが期待値と異なります: %v", cfg.Network.PerHostIntervalMillis)
	}
}

func TestConfigLoading_MissingFile(t *testing.T) {
	// 1. Arrange (準備)
	missingPath := filepath.Join(t.TempDir(), "does-not-exist.toml")

	// 2. Act (実行)
	cfg, err := Load(missingPath)

	// 3. Assert (検証)
	// ファイルが存在しない場合は空の設定として扱う (初回実行)
	if err != nil {
		t.Fatalf("存在しないファイルはエラーではなく空の設定を返すべきです: %v", err)
	}
	if len(cfg.Accounts) != 0 {
		t.Errorf("アカウントマップは空であるべきです。実際値: %d件", len(cfg.Accounts))
	}
}

func TestConfigLoading_BrokenFile(t *testing.T) {
	// 1. Arrange (準備)
	broken := []byte("[accounts.alice\nserver = ???")

	// 2. Act (実行)
	_, err := Parse(broken)

	// 3. Assert (検証)
	if err == nil {
		t.Fatal("破損した設定ファイルはエラーを返すべきです。")
	}
}

func TestConfigSaveAndReload(t *testing.T) {
	// 1. Arrange (準備)
	path := filepath.Join(t.TempDir(), "downfav", "downfav.toml")
	cfg := &Config{Accounts: make(map[string]*AccountConfig)}
	cfg.AddAccount("alice", MastodonCredentials{
		Server:      "https://example.social",
		AccessToken: "token",
	})
	cfg.Accounts["alice"].Markdown = &MarkdownConfig{Path: "/tmp/out"}
	if err := cfg.SetFavourite("alice", "99"); err != nil {
		t.Fatalf("SetFavouriteで予期せぬエラーが発生しました: %v", err)
	}

	// 2. Act (実行)
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Saveで予期せぬエラーが発生しました: %v", err)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("保存した設定の再読み込みに失敗しました: %v", err)
	}

	// 3. Assert (検証)
	alice, err := reloaded.Account("alice")
	if err != nil {
		t.Fatalf("再読み込み後のアカウント'alice'の取得に失敗しました: %v", err)
	}
	if alice.Favourite.Last != "99" {
		t.Errorf("ウォーターマークが保存されていません。期待値: '99', 実際値: '%s'", alice.Favourite.Last)
	}
	if alice.Markdown == nil || alice.Markdown.Path != "/tmp/out" {
		t.Errorf("Markdownストレージ設定が保存されていません: %+v", alice.Markdown)
	}
}

func TestConfig_RemoveAccount(t *testing.T) {
	// Arrange
	cfg := &Config{Accounts: make(map[string]*AccountConfig)}
	cfg.AddAccount("alice", MastodonCredentials{})

	// Act & Assert
	if err := cfg.RemoveAccount("alice"); err != nil {
		t.Errorf("存在するアカウントの削除が失敗しました: %v", err)
	}
	if err := cfg.RemoveAccount("nobody"); err != ErrNoSuchAccount {
		t.Errorf("存在しないアカウントの削除はErrNoSuchAccountを返すべきです。実際値: %v", err)
	}
}

func TestParseStorageType(t *testing.T) {
	// Arrange
	cases := []struct {
		input   string
		wantErr bool
	}{
		{"markdown", false},
		{"org", false},
		{"joplin", false},
		{"sqlite", true},
		{"", true},
	}

	for _, tc := range cases {
		// Act
		_, err := ParseStorageType(tc.input)

		// Assert
		if tc.wantErr && err != ErrNoSuchStorage {
			t.Errorf("入力 '%s': ErrNoSuchStorageを返すべきです。実際値: %v", tc.input, err)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("入力 '%s': エラーを返すべきではありません。実際値: %v", tc.input, err)
		}
	}
}
