package mysql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

func strPtr(s string) *string { return &s }

func TestJSONPath(t *testing.T) {
	assert.Equal(t, `$."title"`, jsonPath("title"))
	assert.Equal(t, `$."meta"."pages"`, jsonPath("meta.pages"))
	assert.Equal(t, `$."first name"`, jsonPath("first name"))
	assert.Equal(t, `$."a\"b"`, jsonPath(`a"b`))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `snake\_case`, escapeLike("snake_case"))
	assert.Equal(t, `C:\\go`, escapeLike(`C:\go`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestCompileWhere(t *testing.T) {
	t.Run("无条件匹配", func(t *testing.T) {
		where, args := compileWhere(book.BuildFilterQuery(nil, nil))
		assert.Empty(t, where)
		assert.Nil(t, args)
	})

	t.Run("按标识", func(t *testing.T) {
		id := book.NewID()
		where, args := compileWhere(book.IDEquals(id))
		assert.Equal(t, "doc_id = ?", where)
		assert.Equal(t, []any{id.Hex()}, args)
	})

	t.Run("只有field时匹配空串", func(t *testing.T) {
		where, args := compileWhere(book.BuildFilterQuery(strPtr("title"), nil))
		assert.Contains(t, where, "JSON_UNQUOTE(JSON_EXTRACT(body, ?)) = ?")
		assert.Contains(t, where, "JSON_CONTAINS")
		assert.Equal(t, []any{`$."title"`, `$."title"`, "", `$."title"`, `$."title"`, ""}, args)
	})

	t.Run("包含匹配转小写并转义通配符", func(t *testing.T) {
		where, args := compileWhere(book.BuildFilterQuery(strPtr("publisher"), strPtr("100%_GO")))
		assert.Contains(t, where, "LIKE ?")
		assert.Contains(t, where, "JSON_SEARCH")
		require.Len(t, args, 6)
		assert.Equal(t, `%100\%\_go%`, args[2])
		assert.Equal(t, `%100\%\_go%`, args[5])
	})

	t.Run("只有searchTerm时在书名和作者中查找", func(t *testing.T) {
		where, args := compileWhere(book.BuildFilterQuery(nil, strPtr("go")))
		title, _ := compileWhere(book.ContainsFold(book.TitleField, "go"))
		author, _ := compileWhere(book.ContainsFold(book.AuthorField, "go"))
		assert.Equal(t, "("+title+") OR ("+author+")", where, "两个子条件各自加括号后以OR连接")
		require.Len(t, args, 12)
		assert.Equal(t, `$."title"`, args[0])
		assert.Equal(t, `$."author"`, args[6])
	})

	t.Run("空Or不匹配任何记录", func(t *testing.T) {
		where, args := compileWhere(book.Or())
		assert.Equal(t, "1 = 0", where)
		assert.Nil(t, args)
	})

	t.Run("Or中含无条件匹配时整体无条件", func(t *testing.T) {
		where, _ := compileWhere(book.Or(book.Equals("a", "b"), book.MatchAll()))
		assert.Empty(t, where)
	})

	t.Run("参数个数与占位符一致", func(t *testing.T) {
		preds := []book.Predicate{
			book.Equals("x", "y"),
			book.ContainsFold("meta.tags", "z"),
			book.Or(book.Equals("a", "1"), book.ContainsFold("b", "2"), book.IDEquals(book.NewID())),
		}
		for _, p := range preds {
			where, args := compileWhere(p)
			assert.Equal(t, strings.Count(where, "?"), len(args), p.String())
		}
	})
}

func TestToRecord(t *testing.T) {
	id := book.NewID()

	t.Run("还原标识并放在首位", func(t *testing.T) {
		rec, err := toRecord(&DocumentModel{Seq: 1, DocID: id.Hex(), Body: `{"title":"Go","_id":"` + id.Hex() + `"}`})
		require.NoError(t, err)
		assert.Equal(t, []string{"_id", "title"}, rec.Keys())
		got, ok := rec.ID()
		require.True(t, ok)
		assert.Equal(t, id, got)
	})

	t.Run("损坏的行不是客户端错误", func(t *testing.T) {
		_, err := toRecord(&DocumentModel{Seq: 2, DocID: id.Hex(), Body: `[1,2]`})
		require.Error(t, err)
		assert.NotErrorIs(t, err, book.ErrInvalidRecord)
		assert.ErrorIs(t, book.StoreUnavailable(err), book.ErrStoreUnavailable)
	})

	t.Run("往返", func(t *testing.T) {
		src, err := book.DecodeRecord([]byte(`{"title":"Go","price":12.5,"tags":["a"]}`))
		require.NoError(t, err)
		row, err := toModel(id, src.WithIDFirst(id))
		require.NoError(t, err)
		assert.Equal(t, id.Hex(), row.DocID)

		back, err := toRecord(row)
		require.NoError(t, err)
		assert.True(t, src.WithIDFirst(id).Equal(back))
	})
}
