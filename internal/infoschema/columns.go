package infoschema

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/arkilian/infoschema/pkg/types"
)

// TimestampNanos is the Arrow type of timestamp columns: nanosecond
// precision, no time zone.
var TimestampNanos = &arrow.TimestampType{Unit: arrow.Nanosecond}

// StringColumn declares a non-null utf8 column.
func StringColumn[T any](name string, value func(T) string) Column[T] {
	return Column[T]{
		Field: arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: false},
		Extract: func(mem memory.Allocator, rows []T) arrow.Array {
			b := array.NewStringBuilder(mem)
			defer b.Release()
			b.Reserve(len(rows))
			for _, row := range rows {
				b.Append(value(row))
			}
			return b.NewArray()
		},
	}
}

// NullableStringColumn declares a utf8 column; ok=false yields null.
func NullableStringColumn[T any](name string, value func(T) (string, bool)) Column[T] {
	return Column[T]{
		Field: arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true},
		Extract: func(mem memory.Allocator, rows []T) arrow.Array {
			b := array.NewStringBuilder(mem)
			defer b.Release()
			b.Reserve(len(rows))
			for _, row := range rows {
				if v, ok := value(row); ok {
					b.Append(v)
				} else {
					b.AppendNull()
				}
			}
			return b.NewArray()
		},
	}
}

// Int64Column declares a non-null int64 column.
func Int64Column[T any](name string, value func(T) int64) Column[T] {
	return Column[T]{
		Field: arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		Extract: func(mem memory.Allocator, rows []T) arrow.Array {
			b := array.NewInt64Builder(mem)
			defer b.Release()
			b.Reserve(len(rows))
			for _, row := range rows {
				b.Append(value(row))
			}
			return b.NewArray()
		},
	}
}

// TimestampNanosColumn declares a non-null nanosecond timestamp column.
// A time outside the int64 nanosecond range panics.
func TimestampNanosColumn[T any](name string, value func(T) time.Time) Column[T] {
	return Column[T]{
		Field: arrow.Field{Name: name, Type: TimestampNanos, Nullable: false},
		Extract: func(mem memory.Allocator, rows []T) arrow.Array {
			b := array.NewTimestampBuilder(mem, TimestampNanos)
			defer b.Release()
			b.Reserve(len(rows))
			for i, row := range rows {
				b.Append(mustTimestamp(name, i, value(row)))
			}
			return b.NewArray()
		},
	}
}

// NullableTimestampNanosColumn declares a nanosecond timestamp column;
// ok=false yields null.
func NullableTimestampNanosColumn[T any](name string, value func(T) (time.Time, bool)) Column[T] {
	return Column[T]{
		Field: arrow.Field{Name: name, Type: TimestampNanos, Nullable: true},
		Extract: func(mem memory.Allocator, rows []T) arrow.Array {
			b := array.NewTimestampBuilder(mem, TimestampNanos)
			defer b.Release()
			b.Reserve(len(rows))
			for i, row := range rows {
				if v, ok := value(row); ok {
					b.Append(mustTimestamp(name, i, v))
				} else {
					b.AppendNull()
				}
			}
			return b.NewArray()
		},
	}
}

func mustTimestamp(column string, row int, t time.Time) arrow.Timestamp {
	nanos, ok := types.UnixNanos(t)
	if !ok {
		panic(fmt.Sprintf("infoschema: column %s row %d: time %s is not representable as int64 nanoseconds", column, row, t))
	}
	return arrow.Timestamp(nanos)
}
