package mailbox

import (
	"context"
	"fmt"
	"strings"
)

// Search performs a case-insensitive substring match over subject, sender,
// recipient and body, optionally scoped by folder, sender/recipient and date
// range. Results are ordered by date descending.
func (a *Actor) Search(ctx context.Context, q SearchQuery) ([]EmailMetadata, error) {
	var (
		conds []string
		args  []any
	)

	if q.Query != "" {
		// escapeLike keeps user-typed % and _ literal.
		needle := "%" + escapeLike(strings.ToLower(q.Query)) + "%"
		conds = append(conds, `(
			LOWER(subject) LIKE ? ESCAPE '\' OR
			LOWER(sender) LIKE ? ESCAPE '\' OR
			LOWER(recipient) LIKE ? ESCAPE '\' OR
			LOWER(COALESCE(body, '')) LIKE ? ESCAPE '\')`)
		args = append(args, needle, needle, needle, needle)
	}
	if q.Folder != "" {
		conds = append(conds, `folder_id = ?`)
		args = append(args, q.Folder)
	}
	if q.From != "" {
		conds = append(conds, `LOWER(sender) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(q.From))+"%")
	}
	if q.To != "" {
		conds = append(conds, `LOWER(recipient) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(q.To))+"%")
	}
	// RFC 3339 UTC text compares in chronological order.
	if !q.DateStart.IsZero() {
		conds = append(conds, `date >= ?`)
		args = append(args, formatDate(q.DateStart))
	}
	if !q.DateEnd.IsZero() {
		conds = append(conds, `date <= ?`)
		args = append(args, formatDate(q.DateEnd))
	}

	query := fmt.Sprintf(`SELECT %s FROM emails`, emailColumns)
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY date DESC`

	var rows []emailRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("search emails: %w", err)
	}

	out := make([]EmailMetadata, 0, len(rows))
	for i := range rows {
		meta, err := rows[i].metadata()
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	return out, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
