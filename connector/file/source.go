// Package file reads newline delimited messages from a file or stdin, or
// follows a growing file.
package file

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"

	"github.com/RuiFG/streaming/streaming-unique/connector"
	"github.com/RuiFG/streaming/streaming-unique/element"
	"github.com/RuiFG/streaming/streaming-unique/log"
	"github.com/hpcloud/tail"
	"github.com/pkg/errors"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

type Source[T any] struct {
	logger   log.Logger
	path     string
	formatFn connector.FormatFn[T]
	delim    byte
	follow   bool
	poll     bool
}

func NewSource[T any](path string, formatFn connector.FormatFn[T], logger log.Logger) *Source[T] {
	return &Source[T]{logger: logger.Named("file"), path: path, formatFn: formatFn, delim: '\n'}
}

// WithFollow keeps reading lines appended to the file, reopening it when it
// is rotated. poll watches by polling instead of inotify. Stdin is never followed.
func (s *Source[T]) WithFollow(poll bool) *Source[T] {
	s.follow = true
	s.poll = poll
	return s
}

// Run emits one event per line. Lines that can't be decoded are logged and
// skipped. It returns once the input is exhausted or ctx is done, a followed
// file only returns when ctx is done.
func (s *Source[T]) Run(ctx context.Context, emit element.Emit[T]) error {
	if s.path == "" || s.path == Stdin {
		return s.read(ctx, os.Stdin, emit)
	}
	if s.follow {
		return s.tail(ctx, emit)
	}
	f, err := os.Open(s.path)
	if err != nil {
		return errors.WithMessagef(err, "can't open file")
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warnw("close file error", "path", s.path, "err", err)
		}
	}()
	return s.read(ctx, f, emit)
}

func (s *Source[T]) read(ctx context.Context, r io.Reader, emit element.Emit[T]) error {
	reader := bufio.NewReader(r)
	var (
		line []byte
		err  error
	)
	for lineNumber := int64(1); err != io.EOF; lineNumber++ {
		if ctx.Err() != nil {
			return nil
		}
		line, err = reader.ReadBytes(s.delim)
		if err != nil && err != io.EOF {
			return errors.WithMessagef(err, "failed to read %s", s.path)
		}
		s.emitLine(lineNumber, line, emit)
	}
	return nil
}

func (s *Source[T]) tail(ctx context.Context, emit element.Emit[T]) error {
	t, err := tail.TailFile(s.path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Poll:      s.poll,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return errors.WithMessagef(err, "can't follow file")
	}
	defer func() {
		if err := t.Stop(); err != nil {
			s.logger.Warnw("stop following file error", "path", s.path, "err", err)
		}
		t.Cleanup()
	}()
	s.logger.Infow("following file", "path", s.path, "poll", s.poll)
	for lineNumber := int64(1); ; lineNumber++ {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return errors.WithMessagef(t.Err(), "stopped following %s", s.path)
			}
			if line.Err != nil {
				s.logger.Warnw("skipping unreadable line", "line", lineNumber, "err", line.Err)
				continue
			}
			s.emitLine(lineNumber, []byte(line.Text), emit)
		}
	}
}

func (s *Source[T]) emitLine(lineNumber int64, line []byte, emit element.Emit[T]) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	value, err := s.formatFn(line)
	if err != nil {
		s.logger.Warnw("skipping undecodable line", "line", lineNumber, "err", err)
		return
	}
	emit(&element.Event[T]{Value: value})
}
