package integration

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBookLifecycle 新建 → 查询 → 合并更新 → 删除
func TestBookLifecycle(t *testing.T) {
	base := BaseURL(t)
	title := UniqueTitle("Go语言高级编程")

	id := CreateTestBook(t, base, map[string]any{
		"title":  title,
		"author": "柴树杉",
		"price":  89,
		"tags":   []string{"go", "并发"},
	})

	t.Run("详情保持字段顺序", func(t *testing.T) {
		status, raw := Do(t, http.MethodGet, base+"/books/"+id, nil)
		require.Equal(t, http.StatusOK, status)
		body := string(raw)
		assert.True(t, strings.Index(body, `"title"`) < strings.Index(body, `"author"`))
		assert.True(t, strings.Index(body, `"author"`) < strings.Index(body, `"price"`))
	})

	t.Run("合并更新", func(t *testing.T) {
		var data UpdateData
		status := DoJSON(t, http.MethodPatch, base+"/books/"+id, map[string]any{"price": 99}, &data)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, int64(1), data.MatchedCount)
		assert.Equal(t, int64(1), data.ModifiedCount)

		var got map[string]any
		DoJSON(t, http.MethodGet, base+"/books/"+id, nil, &got)
		assert.Equal(t, float64(99), got["price"])
		assert.Equal(t, "柴树杉", got["author"], "未提交的字段保持不变")
	})

	t.Run("删除", func(t *testing.T) {
		var data DeleteData
		DoJSON(t, http.MethodDelete, base+"/books/"+id, nil, &data)
		assert.Equal(t, int64(1), data.DeletedCount)

		status, raw := Do(t, http.MethodGet, base+"/books/"+id, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "null", string(raw))
	})
}

// TestBookSearch 搜索:全字段 / 指定字段 / 不区分大小写
func TestBookSearch(t *testing.T) {
	base := BaseURL(t)
	marker := UniqueTitle("Marker")

	CreateTestBook(t, base, map[string]any{"title": marker + " Rust", "publisher": "No Starch"})
	CreateTestBook(t, base, map[string]any{"title": "Other", "publisher": strings.ToLower(marker)})

	var all []map[string]any
	DoJSON(t, http.MethodGet, base+"/books?searchTerm="+url.QueryEscape(strings.ToUpper(marker)), nil, &all)
	assert.Len(t, all, 2, "不区分大小写,跨字段匹配")

	var byTitle []map[string]any
	DoJSON(t, http.MethodGet, base+"/books?field=title&searchTerm="+url.QueryEscape(marker), nil, &byTitle)
	require.Len(t, byTitle, 1)
	assert.Equal(t, marker+" Rust", byTitle[0]["title"])
}

// TestBookErrors 错误响应
func TestBookErrors(t *testing.T) {
	base := BaseURL(t)

	var resp ErrorResponse
	status := DoJSON(t, http.MethodGet, base+"/books/not-an-id", nil, &resp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotZero(t, resp.Code)

	status = DoJSON(t, http.MethodPost, base+"/books", []int{1, 2}, &resp)
	assert.Equal(t, http.StatusBadRequest, status)

	id := CreateTestBook(t, base, map[string]any{"title": UniqueTitle("immutable")})
	status = DoJSON(t, http.MethodPatch, base+"/books/"+id, map[string]any{"_id": "0123456789abcdef01234567"}, &resp)
	assert.Equal(t, http.StatusConflict, status)
}
