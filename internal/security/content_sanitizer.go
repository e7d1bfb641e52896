// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は利用者が投稿したレビュー本文をサニタイズする。
// bluemondayの許可リストベースのポリシーで、改行と強調程度の書式だけを残す。
package security

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxCommentLength はサニタイズ後のレビュー本文の最大文字数。
const MaxCommentLength = 2000

// ContentSanitizerService は投稿テキストのサニタイズ機能のインターフェース。
type ContentSanitizerService interface {
	// Sanitize はレビュー本文をサニタイズする。
	// 許可タグは p, br, strong, em のみで、属性はすべて除去する。
	// 入力をMaxCommentLength文字で切り詰めてから適用するため、タグの途中で切れることはない。
	Sanitize(raw string) string

	// StripTags はすべてのタグを除去する。通知タイトルなどのプレーンテキスト用。
	StripTags(raw string) string
}

type contentSanitizer struct {
	comment *bluemonday.Policy
	strict  *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// bluemondayのPolicyは生成後に変更しなければ並行利用できる。
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "em")

	return &contentSanitizer{
		comment: p,
		strict:  bluemonday.StrictPolicy(),
	}
}

// Sanitize はレビュー本文をサニタイズする。
func (s *contentSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.comment.Sanitize(truncateRunes(strings.TrimSpace(raw), MaxCommentLength)))
}

// StripTags はすべてのタグを除去する。
func (s *contentSanitizer) StripTags(raw string) string {
	return strings.TrimSpace(s.strict.Sanitize(raw))
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
