// Package security はクライアントコアのセキュリティ機能を提供する。
//
// EventSanitizer はスクレイピング由来のイベント説明文をサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import "github.com/microcosm-cc/bluemonday"

// EventSanitizer はイベント説明文のサニタイズ機能のインターフェースを定義する。
// ゲートウェイがイベントを外部に公開する直前に使用される。
type EventSanitizer interface {
	// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, a, ul, ol, li, strong, em）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// aタグにはtarget="_blank"とrel="noopener noreferrer"が自動付与される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string
}

// eventSanitizer はEventSanitizerの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type eventSanitizer struct {
	policy *bluemonday.Policy
}

// NewEventSanitizer はEventSanitizerの新しいインスタンスを生成する。
// 初期化時にbluemondayのカスタムポリシーを構築する。
// スクレイパーが残す軽微な整形タグのみを許し、埋め込み・スクリプト系は
// 許可リストに含めないことで自動的に除去する。
func NewEventSanitizer() *eventSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"strong", "em",
	)

	// aタグ: href属性のみ許可し、新規タブ強制とreferrer抑止を付与する
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AllowURLSchemes("http", "https")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &eventSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *eventSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
