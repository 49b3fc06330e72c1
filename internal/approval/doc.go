// Package approval реализует approval gate.
//
// Запрос на approval создаётся gateway'ем 1:1 с execution и терминален
// после первого решения: повтор того же решения — идемпотентный no-op,
// противоположное решение — конфликт. Нерешённые запросы с истёкшим
// TTL переводятся sweep'ом в expired, а их executions — в skipped.
package approval
