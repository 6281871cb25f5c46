package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath は、設定ファイルの標準の配置場所を返します
// (例: ~/.config/downfav/downfav.toml)。
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("設定ディレクトリの場所を特定できませんでした: %w", err)
	}
	return filepath.Join(configDir, "downfav", "downfav.toml"), nil
}

// Load は、指定されたパスから設定ファイルを読み込みます。
// ファイルが存在しない場合はエラーにせず、空のアカウントマップを返します。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Accounts: make(map[string]*AccountConfig)}, nil
		}
		absPath, _ := filepath.Abs(path)
		return nil, fmt.Errorf("設定ファイル '%s' の読み込みに失敗しました (Abs: '%s'): %w", path, absPath, err)
	}
	return Parse(data)
}

// Parse は、設定データのバイトスライスを解析します。
// この関数はテストのために分離されています。
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("設定ファイルのTOML構文エラー (行 %d, 列 %d): %w", row, col, err)
		}
		return nil, fmt.Errorf("設定ファイルの解析に失敗しました: %w", err)
	}

	if cfg.Accounts == nil {
		cfg.Accounts = make(map[string]*AccountConfig)
	}
	return &cfg, nil
}

// Save は、現在の設定を指定されたパスに書き込みます。
// 親ディレクトリが存在しない場合は作成します。資格情報を含むため
// パーミッションは0600とします。
func Save(path string, cfg *Config) error {
	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("設定のシリアライズに失敗しました: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("設定ディレクトリの作成に失敗しました (path=%s): %w", dir, err)
		}
	}

	if err := os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("設定ファイルの書き込みに失敗しました (path=%s): %w", path, err)
	}
	return nil
}
