package pgrepo

import (
	"fmt"
	"strings"
)

// updateBuilder собирает условный UPDATE одной строки по id.
type updateBuilder struct {
	table string
	sets  []string
	conds []string
	args  []any
}

func newUpdateBuilder(table, id string) *updateBuilder {
	return &updateBuilder{
		table: table,
		sets:  []string{"updated_at = now()"},
		conds: []string{"id = $1"},
		args:  []any{id},
	}
}

func (b *updateBuilder) set(column string, value any) {
	b.args = append(b.args, value)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", column, len(b.args)))
}

// setExpr добавляет присваивание выражения. expr содержит один плейсхолдер %d под value.
func (b *updateBuilder) setExpr(column, expr string, value any) {
	b.args = append(b.args, value)
	b.sets = append(b.sets, column+" = "+fmt.Sprintf(expr, len(b.args)))
}

func (b *updateBuilder) where(cond string, value any) {
	b.args = append(b.args, value)
	b.conds = append(b.conds, fmt.Sprintf(cond, len(b.args)))
}

// whereExpr добавляет условие без параметров.
func (b *updateBuilder) whereExpr(cond string) {
	b.conds = append(b.conds, cond)
}

func (b *updateBuilder) build(returning string) (string, []any) {
	return fmt.Sprintf(`UPDATE %s SET %s WHERE %s RETURNING %s`,
		b.table, strings.Join(b.sets, ", "), strings.Join(b.conds, " AND "), returning), b.args
}
