package book_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/persistence/memory"
)

func decode(t *testing.T, js string) *book.Record {
	t.Helper()
	r, err := book.DecodeRecord([]byte(js))
	require.NoError(t, err)
	return r
}

func ptr(s string) *string { return &s }

func newService() book.Service {
	return book.NewService(memory.NewBookRepository())
}

// TestService_EndToEnd 完整生命周期:新建 -> 搜索 -> 更新 -> 详情 -> 删除
func TestService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	created, err := svc.CreateBook(ctx, decode(t, `{"title":"Go","author":"Pike","price":10}`))
	require.NoError(t, err)
	require.True(t, created.Acknowledged)
	id := created.InsertedID.Hex()

	list, err := svc.ListBooks(ctx, book.FilterRequest{SearchTerm: ptr("go")})
	require.NoError(t, err)
	require.Len(t, list, 1)

	updated, err := svc.UpdateBook(ctx, id, decode(t, `{"price":12}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.MatchedCount)
	assert.Equal(t, int64(1), updated.ModifiedCount)

	got, err := svc.GetBook(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	b, _ := json.Marshal(got)
	assert.JSONEq(t, `{"_id":"`+id+`","title":"Go","author":"Pike","price":12}`, string(b))

	deleted, err := svc.DeleteBook(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted.DeletedCount)

	got, err = svc.GetBook(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestService_ListBooks(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	for _, js := range []string{
		`{"title":"The Go Programming Language","author":"Donovan"}`,
		`{"title":"Learning Rust","author":"Gopher Smith"}`,
		`{"title":"","author":"Anonymous"}`,
		`{"title":"Clean Code","author":"Martin","publisher":"Prentice Hall"}`,
	} {
		_, err := svc.CreateBook(ctx, decode(t, js))
		require.NoError(t, err)
	}

	cases := []struct {
		name   string
		filter book.FilterRequest
		want   int
	}{
		{"无过滤返回全部", book.FilterRequest{}, 4},
		{"searchTerm匹配书名或作者", book.FilterRequest{SearchTerm: ptr("GO")}, 2},
		{"field+searchTerm只看指定字段", book.FilterRequest{Field: ptr("publisher"), SearchTerm: ptr("hall")}, 1},
		{"只有field匹配空串字段", book.FilterRequest{Field: ptr("title")}, 1},
		{"只有field且字段不存在", book.FilterRequest{Field: ptr("publisher")}, 0},
		{"无匹配返回空列表", book.FilterRequest{SearchTerm: ptr("haskell")}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			list, err := svc.ListBooks(ctx, tc.filter)
			require.NoError(t, err)
			assert.NotNil(t, list, "空结果也必须是空列表")
			assert.Len(t, list, tc.want)
		})
	}

	t.Run("保持插入顺序", func(t *testing.T) {
		list, err := svc.ListBooks(ctx, book.FilterRequest{})
		require.NoError(t, err)
		v, _ := list[3].Get("title")
		s, _ := v.Str()
		assert.Equal(t, "Clean Code", s)
	})
}

func TestService_InvalidIdentifier(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	_, err := svc.GetBook(ctx, "not-an-id")
	assert.ErrorIs(t, err, book.ErrInvalidIdentifier)

	_, err = svc.UpdateBook(ctx, "123", decode(t, `{"a":1}`))
	assert.ErrorIs(t, err, book.ErrInvalidIdentifier)

	_, err = svc.DeleteBook(ctx, "")
	assert.ErrorIs(t, err, book.ErrInvalidIdentifier)
}

func TestService_Absent(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	id := book.NewID().Hex()

	got, err := svc.GetBook(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	updated, err := svc.UpdateBook(ctx, id, decode(t, `{"price":1}`))
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated.MatchedCount)
	assert.Equal(t, int64(0), updated.ModifiedCount)

	deleted, err := svc.DeleteBook(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted.DeletedCount)
}

func TestService_UpdateSemantics(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	created, err := svc.CreateBook(ctx, decode(t, `{"title":"T","author":"A","price":10}`))
	require.NoError(t, err)
	id := created.InsertedID.Hex()

	t.Run("幂等:相同负载第二次不修改", func(t *testing.T) {
		first, err := svc.UpdateBook(ctx, id, decode(t, `{"price":15}`))
		require.NoError(t, err)
		assert.Equal(t, int64(1), first.ModifiedCount)

		second, err := svc.UpdateBook(ctx, id, decode(t, `{"price":15}`))
		require.NoError(t, err)
		assert.Equal(t, int64(1), second.MatchedCount)
		assert.Equal(t, int64(0), second.ModifiedCount)
	})

	t.Run("空负载只匹配不修改", func(t *testing.T) {
		res, err := svc.UpdateBook(ctx, id, decode(t, `{}`))
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.MatchedCount)
		assert.Equal(t, int64(0), res.ModifiedCount)
	})

	t.Run("负载携带相同_id允许", func(t *testing.T) {
		res, err := svc.UpdateBook(ctx, id, decode(t, `{"_id":"`+id+`","title":"T2"}`))
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.ModifiedCount)
	})

	t.Run("负载携带不同_id被拒绝", func(t *testing.T) {
		_, err := svc.UpdateBook(ctx, id, decode(t, `{"_id":"`+book.NewID().Hex()+`"}`))
		assert.ErrorIs(t, err, book.ErrImmutableIdentifier)
	})

	t.Run("未出现的字段保持不变", func(t *testing.T) {
		got, err := svc.GetBook(ctx, id)
		require.NoError(t, err)
		b, _ := json.Marshal(got)
		assert.JSONEq(t, `{"_id":"`+id+`","title":"T2","author":"A","price":15}`, string(b))
	})
}

func TestService_CreateBook(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	t.Run("两次新建得到不同标识", func(t *testing.T) {
		a, err := svc.CreateBook(ctx, decode(t, `{"title":"x"}`))
		require.NoError(t, err)
		b, err := svc.CreateBook(ctx, decode(t, `{"title":"x"}`))
		require.NoError(t, err)
		assert.NotEqual(t, a.InsertedID, b.InsertedID)
	})

	t.Run("客户端指定_id", func(t *testing.T) {
		id := book.NewID()
		res, err := svc.CreateBook(ctx, decode(t, `{"_id":"`+id.Hex()+`","title":"y"}`))
		require.NoError(t, err)
		assert.Equal(t, id, res.InsertedID)

		_, err = svc.CreateBook(ctx, decode(t, `{"_id":"`+id.Hex()+`"}`))
		assert.ErrorIs(t, err, book.ErrDuplicateIdentifier)
	})

	t.Run("非法_id", func(t *testing.T) {
		_, err := svc.CreateBook(ctx, decode(t, `{"_id":"oops"}`))
		assert.ErrorIs(t, err, book.ErrInvalidIdentifier)
	})

	t.Run("nil记录", func(t *testing.T) {
		_, err := svc.CreateBook(ctx, nil)
		assert.ErrorIs(t, err, book.ErrInvalidRecord)
	})

	t.Run("不修改调用方记录", func(t *testing.T) {
		rec := decode(t, `{"title":"z"}`)
		_, err := svc.CreateBook(ctx, rec)
		require.NoError(t, err)
		_, ok := rec.Get(book.IDField)
		assert.False(t, ok)
	})
}

func TestService_StoreUnavailable(t *testing.T) {
	svc := newService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ListBooks(ctx, book.FilterRequest{})
	assert.ErrorIs(t, err, book.ErrStoreUnavailable)

	_, err = svc.CreateBook(ctx, book.NewRecord())
	assert.ErrorIs(t, err, book.ErrStoreUnavailable)
}

func TestService_InvalidFieldPath(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	created, err := svc.CreateBook(ctx, decode(t, `{"title":"T","tags":["a","b"]}`))
	require.NoError(t, err)
	id := created.InsertedID.Hex()

	for _, field := range []string{"$where", "$foo", "meta.$x", "a..b"} {
		_, err := svc.ListBooks(ctx, book.FilterRequest{Field: ptr(field), SearchTerm: ptr("x")})
		assert.ErrorIs(t, err, book.ErrInvalidFieldPath, field)
	}

	_, err = svc.CreateBook(ctx, decode(t, `{"$x":1}`))
	assert.ErrorIs(t, err, book.ErrInvalidFieldPath)

	for _, js := range []string{`{"$x":1}`, `{"":1}`, `{"meta":{},"meta.x":1}`, `{"title.sub":1}`} {
		_, err := svc.UpdateBook(ctx, id, decode(t, js))
		assert.ErrorIs(t, err, book.ErrInvalidFieldPath, js)
	}

	res, err := svc.UpdateBook(ctx, id, decode(t, `{"tags.0":"z"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.ModifiedCount)

	got, err := svc.GetBook(ctx, id)
	require.NoError(t, err)
	b, _ := json.Marshal(got)
	assert.JSONEq(t, `{"_id":"`+id+`","title":"T","tags":["z","b"]}`, string(b), "失败的更新不留下部分修改")
}
