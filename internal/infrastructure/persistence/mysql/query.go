package mysql

import (
	"strings"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

// compileWhere 查询条件 → WHERE子句和参数
// MatchAll 返回空字符串,调用方不加WHERE
//
// 与文档库语义对齐:
//   - 字符串字段直接比较
//   - 数组字段任一元素满足即可
//   - 其他类型(数值、对象、缺失)不匹配
func compileWhere(p book.Predicate) (string, []any) {
	switch p.Op {
	case book.OpIDEquals:
		return "doc_id = ?", []any{p.ID.Hex()}

	case book.OpEquals:
		path := jsonPath(p.Field)
		return "((JSON_TYPE(JSON_EXTRACT(body, ?)) = 'STRING' AND JSON_UNQUOTE(JSON_EXTRACT(body, ?)) = ?)" +
				" OR (JSON_TYPE(JSON_EXTRACT(body, ?)) = 'ARRAY' AND JSON_CONTAINS(JSON_EXTRACT(body, ?), JSON_QUOTE(?))))",
			[]any{path, path, p.Value, path, path, p.Value}

	case book.OpContainsFold:
		path := jsonPath(p.Field)
		pattern := "%" + escapeLike(strings.ToLower(p.Value)) + "%"
		return "((JSON_TYPE(JSON_EXTRACT(body, ?)) = 'STRING' AND LOWER(JSON_UNQUOTE(JSON_EXTRACT(body, ?))) LIKE ?)" +
				" OR (JSON_TYPE(JSON_EXTRACT(body, ?)) = 'ARRAY' AND JSON_SEARCH(LOWER(JSON_EXTRACT(body, ?)), 'one', ?, NULL, '$[*]') IS NOT NULL))",
			[]any{path, path, pattern, path, path, pattern}

	case book.OpOr:
		clauses := make([]string, 0, len(p.Any))
		var args []any
		for _, sub := range p.Any {
			where, subArgs := compileWhere(sub)
			if where == "" {
				// 任一子条件为无条件匹配时,整体也是无条件匹配
				return "", nil
			}
			clauses = append(clauses, "("+where+")")
			args = append(args, subArgs...)
		}
		if len(clauses) == 0 {
			return "1 = 0", nil
		}
		return strings.Join(clauses, " OR "), args

	default:
		return "", nil
	}
}
