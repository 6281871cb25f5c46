package render

import (
	"strings"
	"testing"

	"github.com/jbiason/downfav/internal/model"
)

// --- Test for Markdown ---

func TestMarkdown_PlainBody(t *testing.T) {
	// Arrange
	record := &model.Record{ID: "42", Account: "alice", Text: "<p>hi</p>"}

	// Act
	actual, err := Markdown(record)

	// Assert
	if err != nil {
		t.Fatalf("Markdownで予期せぬエラーが発生しました: %v", err)
	}
	// タイトルとソースが空の場合、本文以外の区切りを含まない
	if actual != "hi" {
		t.Errorf("本文が期待値と異なります。期待値: %q, 実際値: %q", "hi", actual)
	}
}

func TestMarkdown_Emphasis(t *testing.T) {
	// Arrange
	record := &model.Record{ID: "1", Text: "<p>this is <strong>bold</strong></p>"}

	// Act
	actual, err := Markdown(record)

	// Assert
	if err != nil {
		t.Fatalf("Markdownで予期せぬエラーが発生しました: %v", err)
	}
	if !strings.Contains(actual, "**bold**") {
		t.Errorf("strongタグがMarkdownの強調に変換されていません。実際値: %q", actual)
	}
}

func TestMarkdown_TitleAndSource(t *testing.T) {
	// Arrange
	record := &model.Record{
		ID:     "1",
		Title:  "CW: test",
		Text:   "<p>hi</p>",
		Source: "https://example.social/@alice/1",
	}

	// Act
	actual, err := Markdown(record)

	// Assert
	if err != nil {
		t.Fatalf("Markdownで予期せぬエラーが発生しました: %v", err)
	}
	expected := "CW: test\n\nhi\n\nhttps://example.social/@alice/1"
	if actual != expected {
		t.Errorf("タイトル・ソースの枠組みが期待値と異なります。期待値: %q, 実際値: %q", expected, actual)
	}
}

func TestMarkdown_TitleOnly(t *testing.T) {
	// Arrange
	record := &model.Record{ID: "1", Title: "spoiler", Text: "<p>body</p>"}

	// Act
	actual, err := Markdown(record)

	// Assert
	if err != nil {
		t.Fatalf("Markdownで予期せぬエラーが発生しました: %v", err)
	}
	expected := "spoiler\n\nbody"
	if actual != expected {
		t.Errorf("タイトルの枠組みが期待値と異なります。期待値: %q, 実際値: %q", expected, actual)
	}
}
