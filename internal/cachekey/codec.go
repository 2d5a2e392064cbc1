// Package cachekey encodes a dataset spec and observation window into the
// canonical artifact name and decodes it back.
//
// Grammar: sourceName-databaseCode-datasetCode-YYYYMMDD-YYYYMMDD.csv
package cachekey

import (
	"strings"

	"AlphaKit/internal/domain/models"
	"AlphaKit/pkg/util"
)

const (
	Delimiter = "-"
	Extension = ".csv"

	arity = 5
)

// KeyFields are the five logical fields carried by a cache key.
type KeyFields struct {
	SourceName   string
	DatabaseCode string
	DatasetCode  string
	Window       models.Window
}

// Encode builds the cache key for spec over window.
func Encode(spec models.DatasetSpec, window models.Window) (string, error) {
	return EncodeFields(KeyFields{
		SourceName:   spec.SourceName(),
		DatabaseCode: spec.DatabaseCode,
		DatasetCode:  spec.DatasetCode,
		Window:       window,
	})
}

// EncodeFields builds the cache key from raw fields. Any field holding the
// delimiter or a path separator is rejected rather than producing an ambiguous key.
func EncodeFields(f KeyFields) (string, error) {
	for _, nv := range [...][2]string{
		{"source", f.SourceName},
		{"database", f.DatabaseCode},
		{"dataset", f.DatasetCode},
	} {
		if err := checkField(nv[0], nv[1]); err != nil {
			return "", err
		}
	}
	start, end := util.Day(f.Window.Start), util.Day(f.Window.End)
	if start.After(end) {
		return "", models.NewFormatError("window start %s after end %s", start.Format(util.ISODate), end.Format(util.ISODate))
	}
	if y := start.Year(); y < 1 || y > 9999 {
		return "", models.NewFormatError("start year %d outside 8-digit range", y)
	}
	if y := end.Year(); y < 1 || y > 9999 {
		return "", models.NewFormatError("end year %d outside 8-digit range", y)
	}

	return strings.Join([]string{
		f.SourceName,
		f.DatabaseCode,
		f.DatasetCode,
		start.Format(util.CompactDate),
		end.Format(util.CompactDate),
	}, Delimiter) + Extension, nil
}

// Decode splits key back into its fields.
func Decode(key string) (KeyFields, error) {
	body, ok := strings.CutSuffix(key, Extension)
	if !ok {
		return KeyFields{}, models.NewFormatError("key %q lacks %s extension", key, Extension)
	}
	tokens := strings.Split(body, Delimiter)
	if len(tokens) != arity {
		return KeyFields{}, models.NewFormatError("key %q has %d tokens, want %d", key, len(tokens), arity)
	}
	for i, name := range [...]string{"source", "database", "dataset"} {
		if err := checkField(name, tokens[i]); err != nil {
			return KeyFields{}, err
		}
	}
	start, ok := util.ParseCompactDate(tokens[3])
	if !ok {
		return KeyFields{}, models.NewFormatError("key %q: bad start date %q", key, tokens[3])
	}
	end, ok := util.ParseCompactDate(tokens[4])
	if !ok {
		return KeyFields{}, models.NewFormatError("key %q: bad end date %q", key, tokens[4])
	}
	if start.After(end) {
		return KeyFields{}, models.NewFormatError("key %q: start after end", key)
	}
	return KeyFields{
		SourceName:   tokens[0],
		DatabaseCode: tokens[1],
		DatasetCode:  tokens[2],
		Window:       models.Window{Start: start, End: end},
	}, nil
}

// Valid reports whether key decodes.
func Valid(key string) bool {
	_, err := Decode(key)
	return err == nil
}

func checkField(name, v string) error {
	switch {
	case v == "":
		return models.NewFormatError("%s field is empty", name)
	case strings.Contains(v, Delimiter):
		return models.NewFormatError("%s field %q contains delimiter %q", name, v, Delimiter)
	case strings.ContainsAny(v, `/\`):
		return models.NewFormatError("%s field %q contains a path separator", name, v)
	case v == "." || v == "..":
		return models.NewFormatError("%s field %q is not a file name", name, v)
	}
	return nil
}
