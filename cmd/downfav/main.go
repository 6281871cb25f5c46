// downfavは、Mastodonアカウントのお気に入りを各種ストレージへ
// 増分アーカイブするコマンドラインツールです。
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jbiason/downfav/internal/config"
	"github.com/jbiason/downfav/internal/core"
	"github.com/jbiason/downfav/internal/mastodon"
)

var (
	configPath  string
	logFilePath string
	logFile     *os.File
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Printf("ERROR: %v", err)
		os.Exit(1)
	}
	if logFile != nil {
		logFile.Close()
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "downfav",
		Short: "Mastodonのお気に入りをアーカイブします",
		Long: `downfavは、Mastodonアカウントのお気に入りを取得し、
ファイルシステム(Markdown)、Org-modeジャーナル、Joplinのいずれか、
または複数へ増分保存するツールです。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "設定ファイルのパス (省略時はOS標準の設定ディレクトリ)")
	rootCmd.PersistentFlags().StringVar(&logFilePath, "log-file", "", "ログをファイルにも出力します")

	rootCmd.AddCommand(newAccountCmd())
	rootCmd.AddCommand(newStorageCmd())
	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newVerifyCmd())
	return rootCmd
}

// setupLogger はログ出力先を設定します。--log-fileが指定された場合、
// 標準出力とファイルの両方に出力します。
func setupLogger() error {
	log.SetOutput(os.Stdout)
	if logFilePath == "" {
		return nil
	}
	f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("ログファイルを開けませんでした (path=%s): %w", logFilePath, err)
	}
	logFile = f
	log.SetOutput(io.MultiWriter(os.Stdout, f))
	return nil
}

// resolveConfigPath は、--configか省略時のデフォルトパスを返します。
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultPath()
}

// loadConfig は設定ファイルを読み込みます。ファイルが存在しない場合は
// 空の設定を返します。
func loadConfig() (*config.Config, string, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// promptLine は、ラベルを表示して標準入力から1行読み取ります。
func promptLine(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprintf(out, "%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("入力の読み取りに失敗しました: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newAccountCmd() *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "アカウントを管理します",
	}

	addCmd := &cobra.Command{
		Use:   "add <別名>",
		Short: "アカウントを追加し、OAuth認証を行います",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}
			if _, err := cfg.Account(name); err == nil {
				return fmt.Errorf("アカウント %s は既に存在します", name)
			}

			in := bufio.NewReader(cmd.InOrStdin())
			server, err := promptLine(in, cmd.OutOrStdout(), "MastodonサーバーのURL (例: https://mastodon.social)")
			if err != nil {
				return err
			}

			credentials, err := mastodon.Register(cmd.Context(), server, in, cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("アカウントの認証に失敗しました (server=%s): %w", server, err)
			}

			cfg.AddAccount(name, credentials)
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			log.Printf("アカウント %s を追加しました。", name)
			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <別名>",
		Short: "アカウントを設定から削除します",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RemoveAccount(name); err != nil {
				return fmt.Errorf("アカウントの削除に失敗しました (account=%s): %w", name, err)
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			log.Printf("アカウント %s を削除しました。", name)
			return nil
		},
	}

	accountCmd.AddCommand(addCmd, removeCmd)
	return accountCmd
}

func newStorageCmd() *cobra.Command {
	storageCmd := &cobra.Command{
		Use:   "storage",
		Short: "アカウントのストレージを管理します",
	}

	addCmd := &cobra.Command{
		Use:   "add <別名> <markdown|org|joplin>",
		Short: "アカウントにストレージを追加します",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			kind, err := config.ParseStorageType(args[1])
			if err != nil {
				return fmt.Errorf("ストレージ種別の解析に失敗しました (type=%s): %w", args[1], err)
			}

			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}
			account, err := cfg.Account(name)
			if err != nil {
				return fmt.Errorf("アカウントの解決に失敗しました (account=%s): %w", name, err)
			}

			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			switch kind {
			case config.StorageMarkdown:
				dir, err := promptLine(in, out, "保存先ディレクトリ")
				if err != nil {
					return err
				}
				account.Markdown = &config.MarkdownConfig{Path: dir}
			case config.StorageOrg:
				dir, err := promptLine(in, out, "ジャーナルを置くディレクトリ")
				if err != nil {
					return err
				}
				account.Org = &config.OrgConfig{Path: dir}
			case config.StorageJoplin:
				joplin, err := promptJoplin(in, out)
				if err != nil {
					return err
				}
				account.Joplin = joplin
			}

			if err := config.Save(path, cfg); err != nil {
				return err
			}
			log.Printf("アカウント %s にストレージ %s を追加しました。", name, kind)
			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <別名> <markdown|org|joplin>",
		Short: "アカウントからストレージを取り除きます",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			kind, err := config.ParseStorageType(args[1])
			if err != nil {
				return fmt.Errorf("ストレージ種別の解析に失敗しました (type=%s): %w", args[1], err)
			}

			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}
			account, err := cfg.Account(name)
			if err != nil {
				return fmt.Errorf("アカウントの解決に失敗しました (account=%s): %w", name, err)
			}
			if err := account.RemoveStorage(kind); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			log.Printf("アカウント %s からストレージ %s を削除しました。", name, kind)
			return nil
		},
	}

	storageCmd.AddCommand(addCmd, removeCmd)
	return storageCmd
}

// promptJoplin は、Joplinストレージの設定項目を対話的に収集します。
func promptJoplin(in *bufio.Reader, out io.Writer) (*config.JoplinConfig, error) {
	portText, err := promptLine(in, out, "JoplinのWeb Clipperポート (通常は41184)")
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		return nil, fmt.Errorf("ポート番号の解析に失敗しました (input=%s): %w", portText, err)
	}
	folder, err := promptLine(in, out, "保存先ノートブック名")
	if err != nil {
		return nil, err
	}
	token, err := promptLine(in, out, "APIトークン")
	if err != nil {
		return nil, err
	}
	return &config.JoplinConfig{Port: port, Folder: folder, Token: token}, nil
}

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [別名...]",
		Short: "新しいお気に入りを取得してストレージへ保存します",
		Long: `前回のウォーターマーク以降のお気に入りを新しい順に取得し、
アカウントに設定された全ストレージへ保存します。別名を省略した場合は
設定済みの全アカウントが対象になります。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}

			accounts := args
			if len(accounts) == 0 {
				for name := range cfg.Accounts {
					accounts = append(accounts, name)
				}
				sort.Strings(accounts)
			}
			if len(accounts) == 0 {
				log.Println("設定済みのアカウントがありません。`downfav account add` で追加してください。")
				return nil
			}

			stats := core.NewSessionStats()
			runErr := core.RunFetch(cmd.Context(), cfg, accounts, stats)

			// ウォーターマークを失わないよう、一部のアカウントが失敗しても保存する
			if err := config.Save(path, cfg); err != nil {
				return fmt.Errorf("設定の保存に失敗しました (path=%s): %w", path, err)
			}
			log.Println(stats.FormatSessionInfo())
			return runErr
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <別名>",
		Short: "過去分を取得せず、ウォーターマークを最新に合わせます",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}
			if err := core.SyncAccount(cmd.Context(), cfg, args[0]); err != nil {
				return err
			}
			return config.Save(path, cfg)
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <別名>",
		Short: "Markdownアーカイブの欠損を検査します",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			account, err := cfg.Account(args[0])
			if err != nil {
				return fmt.Errorf("アカウントの解決に失敗しました (account=%s): %w", args[0], err)
			}
			if account.Markdown == nil {
				return fmt.Errorf("アカウント %s にはMarkdownストレージが設定されていません", args[0])
			}

			result, err := core.VerifyMarkdown(cmd.Context(), account.Markdown.Path)
			if err != nil {
				return err
			}
			core.ReportVerification(result)
			return nil
		},
	}
}
