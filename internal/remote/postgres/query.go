package postgres

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/citysmiles/dental-admin/internal/remote"
)

const alias = "t"

func col(name string) string {
	return alias + "." + pq.QuoteIdentifier(name)
}

// projection renders a row as one jsonb value, joined rows nested under
// their table name.
func projection(q remote.Query) string {
	var b strings.Builder
	if len(q.Columns) == 0 {
		b.WriteString("to_jsonb(" + alias + ")")
	} else {
		b.WriteString(buildObject(alias, q.Columns))
	}
	for i, j := range q.Joins {
		ja := fmt.Sprintf("j%d", i)
		inner := "to_jsonb(" + ja + ")"
		if len(j.Columns) > 0 {
			inner = buildObject(ja, j.Columns)
		}
		fmt.Fprintf(&b, " || jsonb_build_object(%s, (SELECT %s FROM %s %s WHERE %s.id = %s))",
			pq.QuoteLiteral(j.Table), inner, pq.QuoteIdentifier(j.Table), ja, ja, col(j.ForeignKey))
	}
	return b.String()
}

func buildObject(tableAlias string, columns []string) string {
	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		parts = append(parts, pq.QuoteLiteral(c)+", "+tableAlias+"."+pq.QuoteIdentifier(c))
	}
	return "jsonb_build_object(" + strings.Join(parts, ", ") + ")"
}

func where(filters []remote.Filter, args []any) (string, []any) {
	if len(filters) == 0 {
		return "", args
	}
	conds := make([]string, 0, len(filters))
	for _, f := range filters {
		switch f.Op {
		case remote.OpEq:
			if f.Value == nil {
				conds = append(conds, col(f.Column)+" IS NULL")
				continue
			}
			args = append(args, f.Value)
			conds = append(conds, fmt.Sprintf("%s = $%d", col(f.Column), len(args)))
		case remote.OpIn:
			values := make([]string, 0, len(f.Values))
			for _, v := range f.Values {
				values = append(values, fmt.Sprint(v))
			}
			args = append(args, pq.StringArray(values))
			conds = append(conds, fmt.Sprintf("%s::text = ANY($%d)", col(f.Column), len(args)))
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// buildSelect assumes q has passed remote.CheckQuery.
func buildSelect(table string, q remote.Query) (string, []any) {
	from := pq.QuoteIdentifier(table) + " " + alias
	cond, args := where(q.Filters, nil)

	if q.CountOnly {
		return "SELECT count(*) FROM " + from + cond, args
	}

	var b strings.Builder
	b.WriteString("SELECT " + projection(q) + " FROM " + from + cond)
	if q.Order != nil {
		dir := "DESC"
		if q.Order.Ascending {
			dir = "ASC"
		}
		b.WriteString(" ORDER BY " + col(q.Order.Column) + " " + dir)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String(), args
}

// buildInsert writes every row in one statement. Columns missing from a row
// take their DEFAULT.
func buildInsert(table string, rows []remote.Row) (string, []any, error) {
	seen := map[string]bool{}
	var columns []string
	for _, r := range rows {
		for k := range r {
			if err := remote.CheckColumn(k); err != nil {
				return "", nil, err
			}
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	returning := " RETURNING to_jsonb(" + alias + ")"
	target := pq.QuoteIdentifier(table) + " AS " + alias
	if len(columns) == 0 {
		if len(rows) != 1 {
			return "", nil, fmt.Errorf("insert into %s: rows without columns must be written one at a time", table)
		}
		return "INSERT INTO " + target + " DEFAULT VALUES" + returning, nil, nil
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
	}

	var args []any
	tuples := make([]string, 0, len(rows))
	for _, r := range rows {
		vals := make([]string, len(columns))
		for i, c := range columns {
			v, ok := r[c]
			if !ok {
				vals[i] = "DEFAULT"
				continue
			}
			args = append(args, v)
			vals[i] = fmt.Sprintf("$%d", len(args))
		}
		tuples = append(tuples, "("+strings.Join(vals, ", ")+")")
	}

	q := "INSERT INTO " + target + " (" + strings.Join(quoted, ", ") + ") VALUES " +
		strings.Join(tuples, ", ") + returning
	return q, args, nil
}

func buildUpdate(table, id string, patch remote.Row) (string, []any, error) {
	columns := make([]string, 0, len(patch))
	for k := range patch {
		if k == "id" || k == "created_at" || k == "updated_at" {
			continue
		}
		if err := remote.CheckColumn(k); err != nil {
			return "", nil, err
		}
		columns = append(columns, k)
	}
	sort.Strings(columns)

	var args []any
	sets := make([]string, 0, len(columns))
	for _, c := range columns {
		args = append(args, patch[c])
		sets = append(sets, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(c), len(args)))
	}
	if len(sets) == 0 {
		sets = append(sets, "id = id")
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", pq.QuoteIdentifier(table), strings.Join(sets, ", "), len(args))
	return q, args, nil
}
