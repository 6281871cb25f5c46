// Package config は、アプリケーションの設定ファイル(downfav.toml)の構造定義と、
// その読み込み・保存に関する機能を提供します。設定はアカウント別名から
// アカウント設定(資格情報・ウォーターマーク・ストレージ設定)へのマップです。
package config

import (
	"errors"
)

// 設定操作で返されるエラー群。
var (
	// ErrNoSuchAccount は、指定された別名のアカウントが存在しない場合に返されます。
	ErrNoSuchAccount = errors.New("指定されたアカウントは設定に存在しません")
	// ErrNoSuchStorage は、未知のストレージ種別が指定された場合に返されます。
	ErrNoSuchStorage = errors.New("指定されたストレージ種別は存在しません")
)

// Config は設定ファイル全体を表すルート構造体です。
type Config struct {
	Network  NetworkSettings           `toml:"network,omitempty"`
	Accounts map[string]*AccountConfig `toml:"accounts"`
}

// NetworkSettings は、HTTPリクエストに関するグローバルな設定を保持します。
type NetworkSettings struct {
	UserAgent             string         `toml:"user_agent,omitempty"`
	RequestTimeoutSeconds int            `toml:"request_timeout_seconds,omitempty"`
	PerHostIntervalMillis map[string]int `toml:"per_host_interval_ms,omitempty"`
	// MaxConcurrentAccounts は、同時に取得するアカウント数の上限です。
	// 0以下は1(逐次実行)として扱われます。
	MaxConcurrentAccounts int `toml:"max_concurrent_accounts,omitempty"`
}

// AccountConfig は、単一アカウントの資格情報・ウォーターマーク・
// 有効なストレージ設定を保持します。ストレージは複数同時に有効化でき、
// 取得パスは各Recordを有効な全ストレージに書き込みます。
type AccountConfig struct {
	Mastodon  MastodonCredentials `toml:"mastodon"`
	Favourite Favourite           `toml:"favourite"`
	Markdown  *MarkdownConfig     `toml:"markdown,omitempty"`
	Org       *OrgConfig          `toml:"org,omitempty"`
	Joplin    *JoplinConfig       `toml:"joplin,omitempty"`
}

// MastodonCredentials は、リモートサーバーへの接続資格情報です。
type MastodonCredentials struct {
	Server       string `toml:"server"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	AccessToken  string `toml:"access_token"`
}

// Favourite は、アカウントごとの「最後にアーカイブ済みのお気に入りID」
// (ウォーターマーク)を保持します。空文字列は「全件アーカイブする」を意味します。
type Favourite struct {
	Last string `toml:"last"`
}

// MarkdownConfig は、ファイルシステム/Markdownストレージの設定です。
type MarkdownConfig struct {
	Path string `toml:"path"`
}

// OrgConfig は、Orgジャーナルストレージの設定です。
type OrgConfig struct {
	Path string `toml:"path"`
}

// JoplinConfig は、JoplinローカルHTTP APIストレージの設定です。
type JoplinConfig struct {
	Port   int    `toml:"port"`
	Folder string `toml:"folder"`
	Token  string `toml:"token"`
}

// StorageType は、利用可能なストレージ種別の識別子です。
type StorageType string

const (
	StorageMarkdown StorageType = "markdown"
	StorageOrg      StorageType = "org"
	StorageJoplin   StorageType = "joplin"
)

// ParseStorageType は、CLIで指定された文字列をStorageTypeに変換します。
func ParseStorageType(s string) (StorageType, error) {
	switch StorageType(s) {
	case StorageMarkdown, StorageOrg, StorageJoplin:
		return StorageType(s), nil
	default:
		return "", ErrNoSuchStorage
	}
}

// AddAccount は、新しいアカウントを設定に追加します。
func (c *Config) AddAccount(name string, credentials MastodonCredentials) {
	if c.Accounts == nil {
		c.Accounts = make(map[string]*AccountConfig)
	}
	c.Accounts[name] = &AccountConfig{Mastodon: credentials}
}

// RemoveAccount は、アカウントを設定から削除します。
func (c *Config) RemoveAccount(name string) error {
	if _, ok := c.Accounts[name]; !ok {
		return ErrNoSuchAccount
	}
	delete(c.Accounts, name)
	return nil
}

// Account は、別名からアカウント設定を引きます。
func (c *Config) Account(name string) (*AccountConfig, error) {
	account, ok := c.Accounts[name]
	if !ok {
		return nil, ErrNoSuchAccount
	}
	return account, nil
}

// SetFavourite は、アカウントのウォーターマークを更新します。
// 取得パスが正常に完了した後にのみ呼び出すこと。
func (c *Config) SetFavourite(name string, last string) error {
	account, err := c.Account(name)
	if err != nil {
		return err
	}
	account.Favourite.Last = last
	return nil
}

// RemoveStorage は、アカウントから指定種別のストレージ設定を取り除きます。
func (a *AccountConfig) RemoveStorage(kind StorageType) error {
	switch kind {
	case StorageMarkdown:
		a.Markdown = nil
	case StorageOrg:
		a.Org = nil
	case StorageJoplin:
		a.Joplin = nil
	default:
		return ErrNoSuchStorage
	}
	return nil
}

// HasStorage は、いずれかのストレージが有効かどうかを返します。
func (a *AccountConfig) HasStorage() bool {
	return a.Markdown != nil || a.Org != nil || a.Joplin != nil
}
