// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package smock

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func isProducer(value any) bool {
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Func && !rv.IsNil()
}

// produce calls a value producer with the decoded call arguments. A
// producer takes the arguments, either all or as a variadic list, and
// returns a value, an error, or both.
func produce(producer any, args []any) (any, error) {
	fn := reflect.ValueOf(producer)
	typ := fn.Type()

	fixed := typ.NumIn()
	if typ.IsVariadic() {
		fixed--
		if len(args) < fixed {
			return nil, fmt.Errorf("producer takes at least %d arguments, call has %d", fixed, len(args))
		}
	} else if len(args) != fixed {
		return nil, fmt.Errorf("producer takes %d arguments, call has %d", fixed, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var param reflect.Type
		if i < fixed {
			param = typ.In(i)
		} else {
			param = typ.In(fixed).Elem()
		}
		value, err := argument(param, arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in[i] = value
	}

	out := fn.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if typ.Out(0) == errorType {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	case 2:
		if typ.Out(1) != errorType {
			return nil, fmt.Errorf("second result of producer must be an error, got %v", typ.Out(1))
		}
		return out[0].Interface(), asError(out[1])
	}
	return nil, fmt.Errorf("producer returns %d results, expected at most 2", len(out))
}

func argument(param reflect.Type, arg any) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(param), nil
	}
	value := reflect.ValueOf(arg)
	if value.Type().AssignableTo(param) {
		return value, nil
	}
	if value.Type().ConvertibleTo(param) && value.Kind() == param.Kind() {
		return value.Convert(param), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot pass %T as %v", arg, param)
}

func asError(value reflect.Value) error {
	if value.IsNil() {
		return nil
	}
	return value.Interface().(error)
}
