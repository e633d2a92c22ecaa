package mongo

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

func strPtr(s string) *string { return &s }

func TestFilterDocument(t *testing.T) {
	id := book.NewID()

	cases := []struct {
		name string
		p    book.Predicate
		want bson.D
	}{
		{"无过滤", book.BuildFilterQuery(nil, nil), bson.D{}},
		{"只有field", book.BuildFilterQuery(strPtr("title"), nil), bson.D{{Key: "title", Value: ""}}},
		{
			"field和searchTerm",
			book.BuildFilterQuery(strPtr("publisher"), strPtr("O'Reilly")),
			bson.D{{Key: "publisher", Value: bson.D{{Key: "$regex", Value: "O'Reilly"}, {Key: "$options", Value: "i"}}}},
		},
		{
			"只有searchTerm",
			book.BuildFilterQuery(nil, strPtr("go")),
			bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "title", Value: bson.D{{Key: "$regex", Value: "go"}, {Key: "$options", Value: "i"}}}},
				bson.D{{Key: "author", Value: bson.D{{Key: "$regex", Value: "go"}, {Key: "$options", Value: "i"}}}},
			}}},
		},
		{"按标识", book.IDEquals(id), bson.D{{Key: "_id", Value: bson.ObjectID(id)}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, filterDocument(tc.p))
		})
	}

	t.Run("正则元字符被转义", func(t *testing.T) {
		doc := filterDocument(book.ContainsFold("title", "C++ (2nd ed.)"))
		inner := doc[0].Value.(bson.D)
		assert.Equal(t, `C\+\+ \(2nd ed\.\)`, inner[0].Value)
	})
}

func TestUpdateDocument(t *testing.T) {
	id := book.NewID()
	payload, err := book.DecodeRecord([]byte(`{"price":12,"_id":"` + id.Hex() + `","meta.pages":300}`))
	require.NoError(t, err)
	_, merge, err := book.BuildUpdateDocument(id.Hex(), payload)
	require.NoError(t, err)

	assert.Equal(t, bson.D{{Key: "$set", Value: bson.D{
		{Key: "price", Value: int32(12)},
		{Key: "_id", Value: bson.ObjectID(id)},
		{Key: "meta.pages", Value: int32(300)},
	}}}, updateDocument(merge))
}

func TestConvert_RoundTrip(t *testing.T) {
	id := book.NewID()
	rec, err := book.DecodeRecord([]byte(`{"title":"Go","price":12,"big":9007199254740993,"rating":4.5,
		"inPrint":true,"isbn":null,"tags":["a",1],"meta":{"pages":300}}`))
	require.NoError(t, err)
	rec = rec.WithIDFirst(id)

	doc := toDocument(rec)
	assert.Equal(t, "_id", doc[0].Key)
	assert.Equal(t, bson.ObjectID(id), doc[0].Value)
	assert.Equal(t, int64(9007199254740993), doc[3].Value, "超出int32按int64存储")

	back, err := fromDocument(doc)
	require.NoError(t, err)
	assert.True(t, rec.Equal(back))
	assert.Equal(t, rec.Keys(), back.Keys())
}

func TestFromBSONValue_ForeignTypes(t *testing.T) {
	ts := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	dec, err := bson.ParseDecimal128("19.99")
	require.NoError(t, err)

	doc := bson.D{
		{Key: "published", Value: bson.NewDateTimeFromTime(ts)},
		{Key: "price", Value: dec},
		{Key: "legacy", Value: bson.A{int32(1), bson.D{{Key: "x", Value: "y"}}}},
		{Key: "nothing", Value: bson.Null{}},
		{Key: "n", Value: int64(math.MaxInt64)},
	}
	rec, err := fromDocument(doc)
	require.NoError(t, err)

	v, _ := rec.Get("published")
	s, _ := v.Str()
	assert.Equal(t, "2024-03-01T08:00:00Z", s)

	v, _ = rec.Get("price")
	f, ok := v.Float64()
	assert.True(t, ok)
	assert.Equal(t, 19.99, f)

	v, _ = rec.Get("nothing")
	assert.True(t, v.IsNull())

	v, _ = rec.Get("legacy")
	items, ok := v.Items()
	require.True(t, ok)
	assert.Equal(t, book.KindObject, items[1].Kind())
}

func TestStoreError(t *testing.T) {
	t.Run("字段名错误是客户端错误", func(t *testing.T) {
		for _, err := range []error{
			mongo.CommandError{Code: 2, Name: "BadValue", Message: "unknown top level operator: $foo"},
			mongo.CommandError{Code: 52, Name: "DollarPrefixedFieldName"},
			mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 28, Message: "Cannot create field 'sub' in element {title: \"A\"}"}}},
			mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 40, Message: "Updating the path 'meta.x' would create a conflict at 'meta'"}}},
			mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 56, Message: "An empty update path is not valid."}}},
		} {
			got := storeError(err)
			assert.ErrorIs(t, got, book.ErrInvalidFieldPath)
			assert.NotErrorIs(t, got, book.ErrStoreUnavailable)
		}
	})

	t.Run("修改_id", func(t *testing.T) {
		err := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: errCodeImmutableField}}}
		assert.ErrorIs(t, storeError(err), book.ErrImmutableIdentifier)
	})

	t.Run("其余错误视为存储不可用", func(t *testing.T) {
		for _, err := range []error{
			mongo.CommandError{Code: 13, Name: "Unauthorized"},
			context.DeadlineExceeded,
		} {
			assert.ErrorIs(t, storeError(err), book.ErrStoreUnavailable)
		}
	})
}
