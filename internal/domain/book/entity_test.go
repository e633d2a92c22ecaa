package book

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestDecodeRecord(t *testing.T) {
	t.Run("保持字段顺序", func(t *testing.T) {
		in := `{"title":"Go","author":"Pike","price":12,"rating":4.5,"inPrint":true,"isbn":null,"tags":["a","b"],"meta":{"pages":300}}`
		rec := mustRecord(t, in)
		assert.Equal(t, []string{"title", "author", "price", "rating", "inPrint", "isbn", "tags", "meta"}, rec.Keys())
		assert.Equal(t, in, toJSON(t, rec))
	})

	t.Run("整数和浮点分开保存", func(t *testing.T) {
		rec := mustRecord(t, `{"a":12,"b":12.0,"c":1e3,"d":99999999999999999999}`)
		a, _ := rec.Get("a")
		b, _ := rec.Get("b")
		c, _ := rec.Get("c")
		d, _ := rec.Get("d")
		assert.Equal(t, KindInt, a.Kind())
		assert.Equal(t, KindFloat, b.Kind())
		assert.Equal(t, KindFloat, c.Kind())
		assert.Equal(t, KindFloat, d.Kind(), "超出int64范围按浮点保存")
	})

	t.Run("空对象", func(t *testing.T) {
		rec := mustRecord(t, `{}`)
		assert.Equal(t, 0, rec.Len())
		assert.Equal(t, `{}`, toJSON(t, rec))
	})

	invalid := map[string]string{
		"数组":   `[1,2]`,
		"字符串":  `"book"`,
		"空输入":  ``,
		"截断":   `{"title":`,
		"多余内容": `{"a":1}{"b":2}`,
		"null": `null`,
	}
	for name, in := range invalid {
		t.Run("非法输入:"+name, func(t *testing.T) {
			_, err := DecodeRecord([]byte(in))
			assert.ErrorIs(t, err, ErrInvalidRecord)
		})
	}

	t.Run("json.Unmarshal走同一套解析", func(t *testing.T) {
		var rec Record
		require.NoError(t, json.Unmarshal([]byte(`{"z":1,"a":2}`), &rec))
		assert.Equal(t, []string{"z", "a"}, rec.Keys())
	})
}

func TestRecord_Mutations(t *testing.T) {
	rec := NewRecord().Set("a", Int(1)).Set("b", String("x"))

	rec.Set("a", Int(2))
	assert.Equal(t, []string{"a", "b"}, rec.Keys(), "覆盖已有字段不改变位置")

	rec.Delete("a")
	assert.Equal(t, []string{"b"}, rec.Keys())
	rec.Delete("missing")
	assert.Equal(t, 1, rec.Len())
}

func TestRecord_Lookup(t *testing.T) {
	rec := mustRecord(t, `{"meta":{"publisher":{"name":"O'Reilly"}},"a":{"b":"nested"},"a.b":"literal","tags":["x"]}`)

	v, ok := rec.Lookup("meta.publisher.name")
	require.True(t, ok)
	s, _ := v.Str()
	assert.Equal(t, "O'Reilly", s)

	v, ok = rec.Lookup("a.b")
	require.True(t, ok)
	s, _ = v.Str()
	assert.Equal(t, "nested", s, "点号总是路径分隔符,不匹配字面字段名")

	_, ok = mustRecord(t, `{"a.b":"literal"}`).Lookup("a.b")
	assert.False(t, ok)

	_, ok = rec.Lookup("tags.0")
	assert.False(t, ok, "中间节点必须是对象")

	_, ok = rec.Lookup("meta.missing")
	assert.False(t, ok)
}

func TestRecord_SetPath(t *testing.T) {
	t.Run("创建嵌套对象", func(t *testing.T) {
		rec := NewRecord()
		changed, err := rec.SetPath("x.y.z", Bool(true))
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, `{"x":{"y":{"z":true}}}`, toJSON(t, rec))

		changed, err = rec.SetPath("x.y.z", Bool(true))
		require.NoError(t, err)
		assert.False(t, changed, "相同值不算变化")
	})

	t.Run("标量中间节点报错且记录不变", func(t *testing.T) {
		for _, in := range []string{`{"meta":"scalar"}`, `{"meta":12}`, `{"meta":null}`, `{"meta":true}`} {
			rec := mustRecord(t, in)
			changed, err := rec.SetPath("meta.pages", Int(1))
			assert.ErrorIs(t, err, ErrInvalidFieldPath, in)
			assert.False(t, changed)
			assert.Equal(t, in, toJSON(t, rec))
		}
	})

	t.Run("数组下标设置元素", func(t *testing.T) {
		rec := mustRecord(t, `{"tags":["a","b"]}`)
		changed, err := rec.SetPath("tags.0", String("z"))
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, `{"tags":["z","b"]}`, toJSON(t, rec))

		changed, err = rec.SetPath("tags.1", String("b"))
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("数组越界用null补齐", func(t *testing.T) {
		rec := mustRecord(t, `{"tags":["a"]}`)
		_, err := rec.SetPath("tags.3", String("d"))
		require.NoError(t, err)
		assert.Equal(t, `{"tags":["a",null,null,"d"]}`, toJSON(t, rec))

		_, err = rec.SetPath("tags.5.name", String("e"))
		require.NoError(t, err)
		assert.Equal(t, `{"tags":["a",null,null,"d",null,{"name":"e"}]}`, toJSON(t, rec))
	})

	t.Run("数组元素是对象时继续下钻", func(t *testing.T) {
		rec := mustRecord(t, `{"authors":[{"name":"Pike"}]}`)
		_, err := rec.SetPath("authors.0.name", String("Kernighan"))
		require.NoError(t, err)
		assert.Equal(t, `{"authors":[{"name":"Kernighan"}]}`, toJSON(t, rec))
	})

	t.Run("数组下标不是数字时报错", func(t *testing.T) {
		rec := mustRecord(t, `{"tags":["a"]}`)
		for _, path := range []string{"tags.first", "tags.-1", "tags.0.x"} {
			_, err := rec.SetPath(path, Int(1))
			assert.ErrorIs(t, err, ErrInvalidFieldPath, path)
		}
		assert.Equal(t, `{"tags":["a"]}`, toJSON(t, rec))
	})
}

func TestValidateFieldPath(t *testing.T) {
	for _, path := range []string{"title", "meta.isbn", "tags.0", "a_b.c-d"} {
		assert.NoError(t, ValidateFieldPath(path), path)
	}
	for _, path := range []string{"", "$where", "meta.$x", "a..b", ".a", "a."} {
		assert.ErrorIs(t, ValidateFieldPath(path), ErrInvalidFieldPath, path)
	}
}

func TestRecord_WithIDFirst(t *testing.T) {
	id := NewID()
	rec := mustRecord(t, `{"title":"Go","_id":"ignored"}`)
	out := rec.WithIDFirst(id)

	assert.Equal(t, `{"_id":"`+id.Hex()+`","title":"Go"}`, toJSON(t, out))
	got, ok := out.ID()
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = rec.ID()
	assert.False(t, ok, "字符串_id不是存储标识")
}

func TestRecord_CloneIsDeep(t *testing.T) {
	rec := mustRecord(t, `{"meta":{"pages":1},"tags":["a"]}`)
	cp := rec.Clone()
	_, err := cp.SetPath("meta.pages", Int(2))
	require.NoError(t, err)
	cp.Set("tags", Array(String("b")))

	assert.Equal(t, `{"meta":{"pages":1},"tags":["a"]}`, toJSON(t, rec))
	assert.False(t, rec.Equal(cp))
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, Null().Equal(Null()))
	assert.False(t, Int(1).Equal(Float(1)), "整数和浮点类型不同")
	assert.True(t, Array(String("a"), Int(1)).Equal(Array(String("a"), Int(1))))
	assert.False(t, Array(String("a")).Equal(Array(String("a"), String("b"))))

	a := NewRecord().Set("x", Int(1)).Set("y", Int(2))
	b := NewRecord().Set("y", Int(2)).Set("x", Int(1))
	assert.True(t, Object(a).Equal(Object(b)), "对象比较不看字段顺序")

	id := NewID()
	assert.True(t, IDValue(id).Equal(IDValue(id)))
	assert.False(t, IDValue(id).Equal(String(id.Hex())))
}

func TestValue_Float64(t *testing.T) {
	f, ok := Int(3).Float64()
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)

	_, ok = String("3").Float64()
	assert.False(t, ok)
}
