// Package zaperr implements a structured error type whose key/value pairs
// mirror zap's structured logging API, so an error returned from deep in the
// steering engine can be logged with the same field style as everything
// else without the caller re-deriving the context.
package zaperr

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapError is the structured error type.
type ZapError struct {
	msg string
	kv  []interface{}
}

func (ze ZapError) Error() string {
	return ze.msg
}

// MarshalLogObject implements zapcore.ObjectMarshaler, so a ZapError can be
// passed directly to a zap field and have its key/value pairs expanded
// instead of being flattened to its Error() string.
func (ze ZapError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	var invalid invalidPairs

	enc.AddString("msg", ze.msg)
	for i := 0; i < len(ze.kv); {
		if field, ok := ze.kv[i].(zapcore.Field); ok {
			field.AddTo(enc)
			i++
			continue
		}

		if i == len(ze.kv)-1 {
			zap.Any("ignored", ze.kv[i]).AddTo(enc)
			break
		}

		key, val := ze.kv[i], ze.kv[i+1]
		if keyStr, ok := key.(string); !ok {
			if cap(invalid) == 0 {
				invalid = make(invalidPairs, 0, len(ze.kv)/2)
			}
			invalid = append(invalid, invalidPair{i, key, val})
		} else {
			zap.Any(keyStr, val).AddTo(enc)
		}

		i += 2
	}

	if len(invalid) > 0 {
		zap.Array("invalid", invalid).AddTo(enc)
	}

	return nil
}

// ZapErrorArray lets a slice of ZapErrors be logged as a structured array;
// []error is handled by zap already, but []ZapError needs this explicitly.
type ZapErrorArray []ZapError

// MarshalLogArray implements zapcore.ArrayMarshaler.
func (zea ZapErrorArray) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for i := range zea {
		enc.AppendObject(zea[i])
	}
	return nil
}

type invalidPair struct {
	position   int
	key, value interface{}
}

func (p invalidPair) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("position", int64(p.position))
	zap.Any("key", p.key).AddTo(enc)
	zap.Any("value", p.value).AddTo(enc)
	return nil
}

type invalidPairs []invalidPair

func (ps invalidPairs) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for i := range ps {
		enc.AppendObject(ps[i])
	}
	return nil
}

// Errorw builds a ZapError carrying a message and structured key/value
// context, the way zap's SugaredLogger.Errorw takes its arguments.
func Errorw(msg string, args ...interface{}) ZapError {
	return ZapError{msg: msg, kv: args}
}
