package pkg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
)

// Verdict 内容审核结论
type Verdict struct {
	IsAppropriate bool
	ReasonMessage string
	Category      string
}

// ModerationClient 调外部文本审核服务。
// 请求 POST {endpoint} {"text": "..."}，响应里读 is_appropriate / reason / category，
// 字段也接受 camelCase 写法
type ModerationClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewModerationClient(endpoint, apiKey string, client *http.Client) *ModerationClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &ModerationClient{endpoint: endpoint, apiKey: apiKey, client: client}
}

// Classify 没有内部超时，由调用方的 ctx 控制
func (c *ModerationClient) Classify(ctx context.Context, text string) (Verdict, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Verdict{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("moderation request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Verdict{}, fmt.Errorf("moderation read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Verdict{}, fmt.Errorf("moderation status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(raw) {
		return Verdict{}, fmt.Errorf("moderation: invalid json")
	}

	res := gjson.ParseBytes(raw)
	ok := firstOf(res, "is_appropriate", "isAppropriate")
	if !ok.Exists() {
		return Verdict{}, fmt.Errorf("moderation: missing is_appropriate")
	}
	return Verdict{
		IsAppropriate: ok.Bool(),
		ReasonMessage: firstOf(res, "reason", "reasonMessage", "reason_message").String(),
		Category:      firstOf(res, "category").String(),
	}, nil
}

func firstOf(res gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := res.Get(p); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// AllowAll 没有配置审核服务时使用
type AllowAll struct{}

func (AllowAll) Classify(context.Context, string) (Verdict, error) {
	return Verdict{IsAppropriate: true}, nil
}
