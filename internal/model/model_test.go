package model

import (
	"testing"
)

// --- Test for Attachment.Filename ---

func TestAttachment_Filename(t *testing.T) {
	// Arrange
	cases := []struct {
		name     string
		url      string
		expected string
	}{
		{"クエリ文字列付き", "https://host/path/name.png?x=1", "name.png"},
		{"クエリ文字列なし", "https://host/name", "name"},
		{"深いパス", "https://files.example.social/media_attachments/files/123/original/photo.jpeg", "photo.jpeg"},
		{"末尾スラッシュ", "https://host/path/", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Act
			actual := Attachment{URL: tc.url}.Filename()

			// Assert
			if actual != tc.expected {
				t.Errorf("ファイル名が期待値と異なります。期待値: '%s', 実際値: '%s'", tc.expected, actual)
			}
		})
	}
}

// --- Test for Record.UniqueFilenames ---

func TestRecord_UniqueFilenames_Collision(t *testing.T) {
	// Arrange
	// 同一投稿内でクエリ除去後のベース名が衝突するケース
	record := Record{
		ID:      "1",
		Account: "alice",
		Attachments: []Attachment{
			{URL: "https://host/a/image.png?id=1"},
			{URL: "https://host/b/image.png?id=2"},
			{URL: "https://host/c/other.gif"},
			{URL: "https://host/d/image.png"},
		},
	}

	// Act
	names := record.UniqueFilenames()

	// Assert
	expected := []string{"image.png", "image-1.png", "other.gif", "image-2.png"}
	if len(names) != len(expected) {
		t.Fatalf("ファイル名の数が期待値と異なります。期待値: %d, 実際値: %d", len(expected), len(names))
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("インデックス %d: 期待値: '%s', 実際値: '%s'", i, expected[i], names[i])
		}
	}
}

func TestRecord_UniqueFilenames_Empty(t *testing.T) {
	// Arrange
	record := Record{ID: "2", Account: "alice"}

	// Act
	names := record.UniqueFilenames()

	// Assert
	if len(names) != 0 {
		t.Errorf("添付ファイルがない場合は空のリストを返すべきです。実際値: %v", names)
	}
}
