package log

import (
	"fmt"

	"go.uber.org/zap"
)

// toFields turns the loose key/value arguments accepted by Logger into zap
// fields. Bare errors and ready-made zap.Fields may appear anywhere in the
// list. A trailing value without a key is kept under "arg#N".
func toFields(args ...any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); {
		switch v := args[i].(type) {
		case zap.Field:
			fields = append(fields, v)
			i++
			continue
		case error:
			fields = append(fields, zap.Error(v))
			i++
			continue
		}

		if i == len(args)-1 {
			fields = append(fields, zap.Any(fmt.Sprintf("arg#%d", i), args[i]))
			break
		}

		key, val := args[i], args[i+1]
		i += 2
		fields = append(fields, field(key, val))
	}
	return fields
}

func field(key, val any) zap.Field {
	k, ok := key.(string)
	if !ok {
		return zap.Any(fmt.Sprintf("badkey(%v)", key), val)
	}
	switch v := val.(type) {
	case error:
		return zap.NamedError(k, v)
	case fmt.Stringer:
		return zap.Stringer(k, v)
	}
	return zap.Any(k, val)
}
