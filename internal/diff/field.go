package diff

import (
	"fmt"

	"exediff/internal/config"
	"exediff/internal/image"
)

// Field describes one compared member of a header record. Value must return
// a comparable value; Format is only used for display.
type Field[T any] struct {
	Name   string
	Value  func(T) any
	Format func(T) string
	Skip   func(config.Config) bool
}

// SkipIf returns a copy of f that is left out whenever p holds.
func (f Field[T]) SkipIf(p func(config.Config) bool) Field[T] {
	f.Skip = p
	return f
}

func (f Field[T]) skipped(cfg config.Config) bool {
	return f.Skip != nil && f.Skip(cfg)
}

func Word[T any](name string, get func(T) uint16) Field[T] {
	return Field[T]{
		Name:   name,
		Value:  func(r T) any { return get(r) },
		Format: func(r T) string { return fmt.Sprintf("%04X", get(r)) },
	}
}

func Long[T any](name string, get func(T) uint32) Field[T] {
	return Field[T]{
		Name:   name,
		Value:  func(r T) any { return get(r) },
		Format: func(r T) string { return fmt.Sprintf("%08X", get(r)) },
	}
}

// Version fields differ when either component differs.
func Version[T any](name string, get func(T) image.Version) Field[T] {
	return Field[T]{
		Name:   name,
		Value:  func(r T) any { return get(r) },
		Format: func(r T) string { return get(r).String() },
	}
}

// Formatted compares the raw value and renders it through format.
func Formatted[T any, V comparable](name string, get func(T) V, format func(V) string) Field[T] {
	return Field[T]{
		Name:   name,
		Value:  func(r T) any { return get(r) },
		Format: func(r T) string { return format(get(r)) },
	}
}

// Fields compares a and b over table in order, hands every mismatch to sink,
// and returns them.
func Fields[T any](sink Sink, cfg config.Config, prompt string, a, b T, table []Field[T]) []Mismatch {
	var out []Mismatch
	for _, f := range table {
		if f.skipped(cfg) || f.Value(a) == f.Value(b) {
			continue
		}
		m := Mismatch{Prompt: prompt, Field: f.Name, Value1: f.Format(a), Value2: f.Format(b)}
		out = append(out, m)
		sink.Mismatch(m)
	}
	return out
}
