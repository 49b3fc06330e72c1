package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Output — форматирование вывода CLI.
//
// Данные (таблицы, JSON) идут в stdout и пригодны для пайпов;
// служебные сообщения — в stderr.
type Output struct {
	jsonMode bool
	data     io.Writer
	msg      io.Writer
}

// NewOutput создаёт Output. jsonMode=true переключает данные на JSON.
func NewOutput(jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		data:     os.Stdout,
		msg:      os.Stderr,
	}
}

// Print выводит данные в виде таблицы или JSON в зависимости от режима.
// Пустой список в табличном режиме печатает только сообщение в stderr:
// пустая таблица бесполезна, а в JSON-режиме пайплайну нужен `[]`.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	if len(rows) == 0 {
		fmt.Fprintln(o.msg, "no results")
		return
	}
	o.Table(headers, rows)
}

// Table выводит строки через tabwriter с разделителем под заголовком.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.data, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	sep := make([]string, len(headers))
	for i := range headers {
		sep[i] = strings.Repeat("-", len(headers[i]))
	}
	fmt.Fprintln(tw, strings.Join(sep, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// JSON выводит данные с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.data)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.msg, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.msg, "Error: "+msg)
}

// Cell возвращает значение ячейки таблицы, "-" для пустого.
// Опциональные поля (routed_worker, completed_at, last_run_at)
// в таблице читаются лучше с явным прочерком.
func Cell(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
