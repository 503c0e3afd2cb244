package models

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Money is a decimal currency amount. It is stored as BSON Decimal128 and
// serialized to JSON as a number.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money { return Money{Decimal: d} }

// MustMoney parses s and panics on malformed input. Intended for literals.
func MustMoney(s string) Money {
	return Money{Decimal: decimal.RequireFromString(s)}
}

func (m Money) Mul(qty int) Money {
	return Money{Decimal: m.Decimal.Mul(decimal.NewFromInt(int64(qty)))}
}

func (m Money) Add(o Money) Money {
	return Money{Decimal: m.Decimal.Add(o.Decimal)}
}

func (m Money) Equal(o Money) bool { return m.Decimal.Equal(o.Decimal) }

// MarshalJSON emits the amount as a bare JSON number
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	return m.Decimal.UnmarshalJSON(b)
}

func (m Money) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d, err := primitive.ParseDecimal128(m.Decimal.String())
	if err != nil {
		return 0, nil, fmt.Errorf("money: %w", err)
	}
	return bson.MarshalValue(d)
}

// UnmarshalBSONValue accepts Decimal128 as well as the numeric and string
// encodings found in older documents.
func (m *Money) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}

	if d, ok := raw.Decimal128OK(); ok {
		parsed, err := decimal.NewFromString(d.String())
		if err != nil {
			return fmt.Errorf("money: %w", err)
		}
		m.Decimal = parsed
		return nil
	}
	if f, ok := raw.DoubleOK(); ok {
		m.Decimal = decimal.NewFromFloat(f)
		return nil
	}
	if i, ok := raw.Int32OK(); ok {
		m.Decimal = decimal.NewFromInt32(i)
		return nil
	}
	if i, ok := raw.Int64OK(); ok {
		m.Decimal = decimal.NewFromInt(i)
		return nil
	}
	if s, ok := raw.StringValueOK(); ok {
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("money: %w", err)
		}
		m.Decimal = parsed
		return nil
	}
	if t == bsontype.Null {
		m.Decimal = decimal.Zero
		return nil
	}
	return fmt.Errorf("money: cannot decode BSON %s", t)
}
