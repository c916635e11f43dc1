package database

import (
	"fmt"
	"strings"
	"time"

	"reporter/internal/report"
)

// opsBetweenDates выбирает транзакции за период вместе с данными
// сотрудника и терминала. Оба режима отчёта используют один и тот же
// запрос: режим "прошлый месяц" отличается только вычислением дат.
const opsBetweenDates = `
SELECT
    o.id AS id,
    o.oper_date AS date,
    u.emp_id AS emp_id,
    u.first_name AS name,
    u.last_name AS lastname,
    t.name AS terminal,
    o.credit_block AS block
FROM
    ven_operations o
INNER JOIN
    ven_users u ON o.user_id = u.id
INNER JOIN
    ven_terminals t ON o.terminal_id = t.id
WHERE
    o.oper_date BETWEEN ? AND ?
ORDER BY
    o.oper_date DESC`

// QueryFor возвращает текст запроса и упорядоченный список параметров
// для режима отчёта. Параметры всегда ровно (start, end).
func QueryFor(mode report.Mode, start, end time.Time) (string, []any, error) {
	switch mode {
	case report.ModePreviousMonth, report.ModeDateRange:
		return opsBetweenDates, []any{start, end}, nil
	default:
		return "", nil, fmt.Errorf("unknown report mode: %s", mode)
	}
}

// forbiddenKeywords — операции, запрещённые для отчётного запроса:
// доступ к базе строго read-only.
var forbiddenKeywords = []string{"DROP", "DELETE", "UPDATE", "INSERT", "CREATE", "ALTER"}

// ensureReadOnly проверяет SQL-запрос на наличие запрещённых конструкций.
func ensureReadOnly(sqlText string) error {
	upper := strings.ToUpper(sqlText)
	for _, kw := range forbiddenKeywords {
		if strings.Contains(upper, kw) {
			return fmt.Errorf("forbidden operation in report query: %s", kw)
		}
	}
	return nil
}
