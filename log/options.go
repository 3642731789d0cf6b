package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New and Setup, build it from DefaultOptions.
type Options struct {
	outputEncoder OutputEncoder
	level         Level
	levelEncoder  LevelEncoder
	// caller is only reported when set
	callerEncoder CallerEncoder
	// stack traces are attached from warn level on
	stacktrace bool
	timeLayout string
	name       string
	infoWriter io.Writer
	errWriter  io.Writer
}

func (o *Options) WithStacktrace(stacktrace bool) *Options {
	o.stacktrace = stacktrace
	return o
}

func (o *Options) WithTimeLayout(timeLayout string) *Options {
	o.timeLayout = timeLayout
	return o
}

func (o *Options) WithOutputEncoder(outputEncoder OutputEncoder) *Options {
	o.outputEncoder = outputEncoder
	return o
}

func (o *Options) WithLevel(level Level) *Options {
	o.level = level
	return o
}

func (o *Options) WithCallerEncoder(callerEncoder CallerEncoder) *Options {
	o.callerEncoder = callerEncoder
	return o
}

func (o *Options) WithLevelEncoder(encoder LevelEncoder) *Options {
	o.levelEncoder = encoder
	return o
}

func (o *Options) WithNamed(name string) *Options {
	o.name = name
	return o
}

// WithWriters redirects output, entries below warn level go to infoWriter.
func (o *Options) WithWriters(infoWriter, errWriter io.Writer) *Options {
	o.infoWriter = infoWriter
	o.errWriter = errWriter
	return o
}

func (o *Options) encoderConfig() zapcore.EncoderConfig {
	config := zap.NewProductionEncoderConfig()
	config.EncodeLevel = zapcore.LevelEncoder(o.levelEncoder)
	config.EncodeTime = zapcore.TimeEncoderOfLayout(o.timeLayout)
	config.ConsoleSeparator = " "
	if o.callerEncoder != nil {
		config.EncodeCaller = zapcore.CallerEncoder(o.callerEncoder)
	}
	return config
}

func DefaultOptions() *Options {
	return &Options{
		outputEncoder: JsonOutputEncoder,
		level:         InfoLevel,
		levelEncoder:  BracketLevelEncoder,
		timeLayout:    "02/Jan/2006:15:04:05 -0700",
		infoWriter:    os.Stdout,
		errWriter:     os.Stderr,
	}
}
