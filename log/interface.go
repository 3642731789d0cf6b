package log

import "go.uber.org/zap/zapcore"

type Logger interface {
	Debug(args ...any)
	Debugf(template string, args ...any)
	Debugw(msg string, keysAndValues ...any)
	Info(args ...any)
	Infof(template string, args ...any)
	Infow(msg string, keysAndValues ...any)
	Warn(args ...any)
	Warnf(template string, args ...any)
	Warnw(msg string, keysAndValues ...any)
	Error(args ...any)
	Errorf(template string, args ...any)
	Errorw(msg string, keysAndValues ...any)
	Named(name string) Logger
	With(keysAndValues ...any) Logger
	Sync() error
}

type Level int8

const (
	DebugLevel = Level(zapcore.DebugLevel)
	InfoLevel  = Level(zapcore.InfoLevel)
	WarnLevel  = Level(zapcore.WarnLevel)
	ErrorLevel = Level(zapcore.ErrorLevel)
	PanicLevel = Level(zapcore.PanicLevel)
	FatalLevel = Level(zapcore.FatalLevel)
)

// ParseLevel accepts the zap level names, e.g. "debug" or "WARN".
func ParseLevel(text string) (Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(text)); err != nil {
		return InfoLevel, err
	}
	return Level(level), nil
}

type OutputEncoder func(config zapcore.EncoderConfig) zapcore.Encoder

type LevelEncoder func(level zapcore.Level, encoder zapcore.PrimitiveArrayEncoder)

type CallerEncoder func(caller zapcore.EntryCaller, encoder zapcore.PrimitiveArrayEncoder)

var (
	JsonOutputEncoder    OutputEncoder = zapcore.NewJSONEncoder
	ConsoleOutputEncoder OutputEncoder = zapcore.NewConsoleEncoder

	CapitalLevelEncoder LevelEncoder = zapcore.CapitalLevelEncoder
	//BracketLevelEncoder renders [info] [warn] ...
	BracketLevelEncoder LevelEncoder = func(level zapcore.Level, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString("[" + level.String() + "]")
	}

	ShortCallerEncoder CallerEncoder = zapcore.ShortCallerEncoder
)
