// Package core は、downfavの中核となるビジネスロジックを実装します。
// お気に入りの増分取得、ウォーターマーク管理、アーカイブ結果の検証を担います。
package core

import (
	"fmt"
	"sync"
	"time"
)

// SessionStats はセッション統計情報を管理します。
// 複数アカウントの取得ゴルーチンから並行に更新されます。
type SessionStats struct {
	mutex              sync.Mutex
	StartTime          time.Time // 起動時刻
	RecordsArchived    int       // アーカイブしたお気に入り数
	AttachmentsFetched int       // 処理した添付ファイル数
	AccountsProcessed  int       // 処理したアカウント数
	SaveFailures       int       // 保存に失敗した回数
}

// NewSessionStats は、現在時刻を起点とする統計を生成します。
func NewSessionStats() *SessionStats {
	return &SessionStats{StartTime: time.Now()}
}

// AddRecord は、1件のお気に入りのアーカイブ完了を記録します。
func (s *SessionStats) AddRecord(attachments int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.RecordsArchived++
	s.AttachmentsFetched += attachments
}

// AddSaveFailure は、保存失敗を記録します。
func (s *SessionStats) AddSaveFailure() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.SaveFailures++
}

// AddAccount は、1アカウントの処理完了を記録します。
func (s *SessionStats) AddAccount() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.AccountsProcessed++
}

// FormatSessionInfo はセッション統計情報を文字列にフォーマットします。
func (s *SessionStats) FormatSessionInfo() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	uptime := time.Since(s.StartTime)
	minutes := int(uptime.Minutes())
	seconds := int(uptime.Seconds()) % 60

	return fmt.Sprintf("実行時間: %dm%ds | アカウント: %d | お気に入り: %d | 添付: %d | 保存失敗: %d",
		minutes, seconds, s.AccountsProcessed, s.RecordsArchived, s.AttachmentsFetched, s.SaveFailures)
}
