package telemetry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// expectedHeader единственно допустимая шапка CSV
var expectedHeader = []string{"timestamp", "temperature", "pressure", "velocity", "battery", "fuel"}

// ParseError ошибка разбора CSV; Row = 0 означает строку заголовка
type ParseError struct {
	Row    int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("csv header: %s", e.Reason)
	}
	return fmt.Sprintf("csv row %d: %s", e.Row, e.Reason)
}

// ParseCSV читает весь поток и возвращает записи в порядке файла.
// Любая некорректная строка отклоняет весь импорт целиком.
func ParseCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(expectedHeader)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ParseError{Row: 0, Reason: "empty file"}
	}
	if err != nil {
		return nil, &ParseError{Row: 0, Reason: err.Error()}
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	var records []Record
	row := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, &ParseError{Row: row, Reason: err.Error()}
		}

		rec, err := parseRow(fields)
		if err != nil {
			return nil, &ParseError{Row: row, Reason: err.Error()}
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, &ParseError{Row: 0, Reason: "no data rows"}
	}
	return records, nil
}

// validateHeader требует точного совпадения набора и порядка колонок
func validateHeader(header []string) error {
	if len(header) != len(expectedHeader) {
		return &ParseError{Row: 0, Reason: fmt.Sprintf("expected %d columns, got %d", len(expectedHeader), len(header))}
	}
	for i, want := range expectedHeader {
		if strings.TrimSpace(header[i]) != want {
			return &ParseError{Row: 0, Reason: fmt.Sprintf("column %d must be %q, got %q", i+1, want, strings.TrimSpace(header[i]))}
		}
	}
	return nil
}

// parseRow разбирает одну строку данных и проверяет физические диапазоны
func parseRow(fields []string) (Record, error) {
	ts, err := time.Parse(TimestampLayout, strings.TrimSpace(fields[0]))
	if err != nil {
		return Record{}, fmt.Errorf("bad timestamp %q, expected DD-MM-YYYY HH:MM", strings.TrimSpace(fields[0]))
	}

	values := make([]float64, len(Parameters))
	for i, name := range Parameters {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
		if err != nil {
			return Record{}, fmt.Errorf("bad %s value %q", name, strings.TrimSpace(fields[i+1]))
		}
		values[i] = v
	}

	rec := Record{
		Timestamp:   ts,
		Temperature: values[0],
		Pressure:    values[1],
		Velocity:    values[2],
		Battery:     values[3],
		Fuel:        values[4],
	}
	if err := rec.checkDomain(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// checkDomain проверяет ограничения модели данных, не зависящие от профиля
func (r Record) checkDomain() error {
	if r.Pressure < 0 {
		return errors.New("pressure must be non-negative")
	}
	if r.Velocity < 0 {
		return errors.New("velocity must be non-negative")
	}
	if r.Battery < 0 || r.Battery > 100 {
		return errors.New("battery must be within 0..100")
	}
	if r.Fuel < 0 || r.Fuel > 100 {
		return errors.New("fuel must be within 0..100")
	}
	return nil
}
