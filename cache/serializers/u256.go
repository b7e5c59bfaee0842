// Package serializers registers gorm column serializers for the cache
// package's numeric columns, adapted from the teacher's
// database/utils/serializers/u256.go so a resolved block height
// round-trips through Postgres as an exact decimal string instead of a
// lossy float. The chain id column is a plain int64 and uses no
// serializer.
package serializers

import (
	"context"
	"fmt"
	"math/big"
	"reflect"

	"github.com/jackc/pgtype"
	"gorm.io/gorm/schema"
)

var (
	big10              = big.NewInt(10)
	u256BigIntOverflow = new(big.Int).Exp(big.NewInt(2), big.NewInt(256), nil)
)

// U256Serializer marshals a *big.Int field as a decimal string, falling
// back to pgtype.Numeric for drivers that hand back a numeric wire type
// directly.
type U256Serializer struct{}

func init() {
	schema.RegisterSerializer("u256", U256Serializer{})
}

func (U256Serializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue interface{}) error {
	if dbValue == nil {
		return nil
	}
	if field.FieldType != reflect.TypeOf((*big.Int)(nil)) {
		return fmt.Errorf("u256 serializer only supports *big.Int fields, got %v", field.FieldType)
	}

	var bigInt *big.Int
	switch v := dbValue.(type) {
	case string:
		parsed, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return fmt.Errorf("failed to parse string as big.Int: %s", v)
		}
		bigInt = parsed
	case []byte:
		parsed, ok := new(big.Int).SetString(string(v), 10)
		if !ok {
			return fmt.Errorf("failed to parse bytes as big.Int: %s", string(v))
		}
		bigInt = parsed
	default:
		numeric := new(pgtype.Numeric)
		if err := numeric.Scan(dbValue); err != nil {
			return fmt.Errorf("failed to scan value as numeric: %w", err)
		}
		bigInt = numeric.Int
		if numeric.Exp > 0 {
			factor := new(big.Int).Exp(big10, big.NewInt(int64(numeric.Exp)), nil)
			bigInt.Mul(bigInt, factor)
		}
	}

	if bigInt.Cmp(u256BigIntOverflow) >= 0 {
		return fmt.Errorf("deserialized number larger than u256 can hold: %s", bigInt)
	}
	field.ReflectValueOf(ctx, dst).Set(reflect.ValueOf(bigInt))
	return nil
}

func (U256Serializer) Value(ctx context.Context, field *schema.Field, dst reflect.Value, fieldValue interface{}) (interface{}, error) {
	if fieldValue == nil || (field.FieldType.Kind() == reflect.Pointer && reflect.ValueOf(fieldValue).IsNil()) {
		return nil, nil
	}
	if field.FieldType != reflect.TypeOf((*big.Int)(nil)) {
		return nil, fmt.Errorf("u256 serializer only supports *big.Int fields, got %v", field.FieldType)
	}

	bigIntValue := fieldValue.(*big.Int)
	if bigIntValue == nil {
		return nil, nil
	}
	if bigIntValue.Sign() < 0 {
		return nil, fmt.Errorf("cannot serialize a negative big.Int as u256: %s", bigIntValue)
	}
	if bigIntValue.Cmp(u256BigIntOverflow) >= 0 {
		return nil, fmt.Errorf("cannot serialize a big.Int larger than u256: %s", bigIntValue)
	}
	return bigIntValue.String(), nil
}
