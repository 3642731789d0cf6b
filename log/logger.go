package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	rootMutex sync.Mutex
	root      *logger
	rootLevel zap.AtomicLevel
)

type logger struct {
	*zap.SugaredLogger
}

func (l *logger) Named(name string) Logger {
	return &logger{l.SugaredLogger.Named(name)}
}

func (l *logger) With(keysAndValues ...any) Logger {
	return &logger{l.SugaredLogger.With(keysAndValues...)}
}

// Global returns the process logger, a no-op logger until Setup is called.
func Global() Logger {
	rootMutex.Lock()
	defer rootMutex.Unlock()
	if root == nil {
		return Nop()
	}
	return root
}

// Setup installs the process logger once, later calls only log a warning.
func Setup(options *Options) {
	rootMutex.Lock()
	defer rootMutex.Unlock()
	if root != nil {
		root.Warn("can't re setup root logger")
		return
	}
	rootLevel = zap.NewAtomicLevelAt(zapcore.Level(options.level))
	root = build(options, rootLevel)
}

// SetLevel changes the level of the process logger at runtime.
func SetLevel(level Level) {
	rootMutex.Lock()
	defer rootMutex.Unlock()
	if root != nil {
		rootLevel.SetLevel(zapcore.Level(level))
	}
}

func New(options *Options) Logger {
	return build(options, zap.NewAtomicLevelAt(zapcore.Level(options.level)))
}

// NewWithCore wraps an already built core, e.g. an observer core in tests.
func NewWithCore(core zapcore.Core) Logger {
	return &logger{zap.New(core).Sugar()}
}

func Nop() Logger {
	return &logger{zap.NewNop().Sugar()}
}

func build(options *Options, level zap.AtomicLevel) *logger {
	encoder := options.outputEncoder(options.encoderConfig())
	// info and debug go to infoWriter, warn and above to errWriter
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(options.infoWriter),
			zap.LevelEnablerFunc(func(l zapcore.Level) bool {
				return level.Enabled(l) && l < zapcore.WarnLevel
			})),
		zapcore.NewCore(encoder.Clone(), zapcore.AddSync(options.errWriter),
			zap.LevelEnablerFunc(func(l zapcore.Level) bool {
				return level.Enabled(l) && l >= zapcore.WarnLevel
			})),
	)
	var zapOptions []zap.Option
	if options.callerEncoder != nil {
		zapOptions = append(zapOptions, zap.AddCaller())
	}
	if options.stacktrace {
		zapOptions = append(zapOptions, zap.AddStacktrace(zapcore.WarnLevel))
	}
	sugared := zap.New(core, zapOptions...).Sugar()
	if options.name != "" {
		sugared = sugared.Named(options.name)
	}
	return &logger{sugared}
}
