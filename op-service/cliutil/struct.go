package cliutil

import (
	"encoding"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"
)

var (
	durationType = reflect.TypeOf(time.Duration(0))
	addressType  = reflect.TypeOf(common.Address{})
	bigIntType   = reflect.TypeOf((*big.Int)(nil))
	uint256Type  = reflect.TypeOf((*uint256.Int)(nil))
)

// PopulateStruct populates a struct with values from CLI context based on `cli` tags.
// Fields whose flag was neither set nor given a default keep their current value
// when the field is an address or a pointer.
// Integer fields tagged with the "hex" option, e.g. `cli:"amount,hex"`, are
// always read as base 16.
func PopulateStruct(cfg any, ctx *cli.Context) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config must be a pointer to struct")
	}
	v = v.Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		cliTag, opt, _ := strings.Cut(field.Tag.Get("cli"), ",")
		if cliTag == "" || !fieldValue.CanSet() {
			continue
		}
		if err := setFieldValue(fieldValue, field.Type, ctx, cliTag, opt == "hex"); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}
	return nil
}

func setFieldValue(fieldValue reflect.Value, fieldType reflect.Type, ctx *cli.Context, flag string, hex bool) error {
	switch fieldType {
	case durationType:
		fieldValue.SetInt(int64(ctx.Duration(flag)))
		return nil
	case addressType:
		return setAddress(fieldValue, ctx, flag)
	case bigIntType:
		if ctx.String(flag) == "" {
			return nil
		}
		parse := ParseBigInt
		if hex {
			parse = ParseHexBigInt
		}
		b, err := parse(ctx.String(flag))
		if err != nil {
			return err
		}
		fieldValue.Set(reflect.ValueOf(b))
		return nil
	case uint256Type:
		if ctx.String(flag) == "" {
			return nil
		}
		parse := ParseUint256
		if hex {
			parse = ParseHexUint256
		}
		u, err := parse(ctx.String(flag))
		if err != nil {
			return err
		}
		fieldValue.Set(reflect.ValueOf(u))
		return nil
	}

	switch fieldType.Kind() {
	case reflect.String:
		fieldValue.SetString(ctx.String(flag))
	case reflect.Bool:
		fieldValue.SetBool(ctx.Bool(flag))
	case reflect.Int, reflect.Int64:
		fieldValue.SetInt(int64(ctx.Int(flag)))
	case reflect.Uint64:
		fieldValue.SetUint(ctx.Uint64(flag))
	case reflect.Ptr:
		if !ctx.IsSet(flag) {
			return nil
		}
		elem := reflect.New(fieldType.Elem())
		unmarshaler, ok := elem.Interface().(encoding.TextUnmarshaler)
		if !ok {
			return fmt.Errorf("unsupported pointer type: %v", fieldType)
		}
		if err := unmarshaler.UnmarshalText([]byte(ctx.String(flag))); err != nil {
			return err
		}
		fieldValue.Set(elem)
	default:
		return fmt.Errorf("unsupported type: %v", fieldType)
	}
	return nil
}

func setAddress(fieldValue reflect.Value, ctx *cli.Context, flag string) error {
	addrStr := ctx.String(flag)
	if addrStr == "" {
		return nil
	}
	if !common.IsHexAddress(addrStr) {
		return fmt.Errorf("invalid address: %s", addrStr)
	}
	fieldValue.Set(reflect.ValueOf(common.HexToAddress(addrStr)))
	return nil
}
