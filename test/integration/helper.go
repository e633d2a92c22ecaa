// Package integration 针对运行中服务的黑盒测试
//
// 先启动服务(go run ./cmd/api),再执行 go test ./test/integration/...
// 服务不可达时全部跳过;BOOKCATALOG_BASE_URL 指定其他地址
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	// DefaultBaseURL 默认服务地址
	DefaultBaseURL = "http://localhost:8080"
	// Timeout HTTP请求超时时间
	Timeout = 10 * time.Second
)

var client = &http.Client{Timeout: Timeout}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// InsertData 新建响应
type InsertData struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

// UpdateData 更新响应
type UpdateData struct {
	Acknowledged  bool  `json:"acknowledged"`
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// DeleteData 删除响应
type DeleteData struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

// BaseURL 返回服务地址,服务不可达时跳过测试
func BaseURL(t *testing.T) string {
	t.Helper()
	base := os.Getenv("BOOKCATALOG_BASE_URL")
	if base == "" {
		base = DefaultBaseURL
	}
	resp, err := client.Get(base + "/ping")
	if err != nil {
		t.Skipf("服务不可达(%s): %v", base, err)
	}
	_ = resp.Body.Close()
	return base
}

// Do 发送请求,返回状态码和原始响应体
func Do(t *testing.T, method, url string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err, "JSON序列化失败")
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err, "创建HTTP请求失败")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	require.NoError(t, err, "发送HTTP请求失败")
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "读取响应体失败")
	return resp.StatusCode, raw
}

// DoJSON 发送请求并把响应体解析到out
func DoJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	status, raw := Do(t, method, url, body)
	require.NoError(t, json.Unmarshal(raw, out), "解析JSON响应失败: %s", string(raw))
	return status
}

// UniqueTitle 生成唯一的测试书名,避免重复运行时互相干扰
func UniqueTitle(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// CreateTestBook 新建测试图书并返回ID,测试结束时删除
func CreateTestBook(t *testing.T, base string, record map[string]any) string {
	t.Helper()
	var data InsertData
	status := DoJSON(t, http.MethodPost, base+"/books", record, &data)
	require.Equal(t, http.StatusOK, status)
	require.True(t, data.Acknowledged)
	require.Len(t, data.InsertedID, 24)

	t.Cleanup(func() {
		Do(t, http.MethodDelete, base+"/books/"+data.InsertedID, nil)
	})
	return data.InsertedID
}
