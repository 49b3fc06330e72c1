// Package cli реализует операторскую утилиту командной строки.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с API ядра.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// Используется операторами для запуска runbook'ов, решений по
// approvals и просмотра состояния системы.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API. Инкапсулирует все HTTP-запросы, парсинг
// ответов (dataResponse, listResponse, errorResponse) и обработку
// ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	execs, err := client.ListExecutions(cli.ListExecutionsOpts{})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json-индентация) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: cloudo exec list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - schema: list, show, apply, delete
//   - exec: list, trigger, show, cancel, history
//   - approval: list, show, approve, reject
//   - worker: list, show
//   - schedule: list, create, show, delete, enable, disable
//   - audit: query
//
// Каждая группа создаётся через фабричную функцию (NewSchemaCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
