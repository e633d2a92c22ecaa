package mysql

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isDuplicateError 判断是否为MySQL唯一索引冲突错误
// MySQL错误码:
// - 1062: Duplicate entry 'xxx' for key 'yyy'
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	// 需要开启 gorm.Config.TranslateError
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// 兼容检查:错误信息包含"Duplicate entry"
	return strings.Contains(err.Error(), "Duplicate entry")
}

// jsonPath 点分字段名 → MySQL JSON路径
// 每一段都加双引号,字段名中的特殊字符(空格、-、$)不会破坏路径
//
//	"meta.pages" → $."meta"."pages"
func jsonPath(field string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, seg := range strings.Split(field, ".") {
		b.WriteString(`."`)
		b.WriteString(strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(seg))
		b.WriteString(`"`)
	}
	return b.String()
}

// escapeLike 转义LIKE通配符(默认转义字符为\)
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
