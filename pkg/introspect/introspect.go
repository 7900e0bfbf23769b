package introspect

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/authgate/pkg/httpclient"
)

// IntrospectPath はIDサービスのイントロスペクションエンドポイントのパス。
const IntrospectPath = "/auth/introspect"

// ErrIntrospectionFailed はトークンの有効性を判定できなかったことを表す。
// 通信エラー、タイムアウト、2xx以外のステータス、デシリアライズ失敗のすべてを含む。
var ErrIntrospectionFailed = errors.New("トークンのイントロスペクションに失敗")

// Result はIDサービスが返すトークンの検証結果。
// リクエストごとに一度だけ消費され、保持されない。
type Result struct {
	// Valid はトークンが有効かどうか。
	Valid bool `json:"valid"`
	// Subject はトークンに紐づく主体。IDサービスが返さない場合は空。
	Subject string `json:"sub,omitempty"`
}

// Introspector はトークンの有効性を外部に問い合わせる。
type Introspector interface {
	Introspect(ctx context.Context, token string) (Result, error)
}

// IntrospectorFunc は関数をIntrospectorとして扱うためのアダプタ。
type IntrospectorFunc func(ctx context.Context, token string) (Result, error)

// Introspect はf(ctx, token)を呼び出す。
func (f IntrospectorFunc) Introspect(ctx context.Context, token string) (Result, error) {
	return f(ctx, token)
}

// request はイントロスペクションのリクエストボディ。
type request struct {
	Token string `json:"token"`
}

// Client はHTTP経由でIDサービスにトークンを問い合わせるIntrospector。
type Client struct {
	http *httpclient.Client
}

// NewClient は新しいイントロスペクションクライアントを生成する。
// hcのベースURLにIntrospectPathを連結した先にPOSTする。
func NewClient(hc *httpclient.Client) *Client {
	return &Client{http: hc}
}

// Introspect はトークンをIDサービスに送信し、検証結果を返す。
// 失敗はすべてErrIntrospectionFailedでラップされる。
func (c *Client) Introspect(ctx context.Context, token string) (Result, error) {
	var res Result
	if err := c.http.PostJSON(ctx, IntrospectPath, request{Token: token}, &res); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrIntrospectionFailed, err)
	}
	return res, nil
}

var _ Introspector = (*Client)(nil)
