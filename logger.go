// Copyright 2018 Brian Starkey <stark3y@gmail.com>
package main

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

func selectLevel(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// Human readable output on a terminal, JSON otherwise.
func selectOutput() io.Writer {
	if term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{
			Out: os.Stderr,
			TimeFormat: time.StampMilli,
		}
	}

	return os.Stderr
}

// newLogger returns the process logger and a func to close its file, if
// any.
func newLogger(verbose, quiet bool, file string) (zerolog.Logger, func() error) {
	out := selectOutput()
	closer := func() error { return nil }

	if file != "" {
		lj := &lumberjack.Logger{
			Filename: file,
			MaxSize: 20,
			MaxBackups: 5,
			MaxAge: 30,
			Compress: true,
		}
		out = zerolog.MultiLevelWriter(out, lj)
		closer = lj.Close
	}

	log := zerolog.New(out).
		Level(selectLevel(verbose, quiet)).
		With().Timestamp().Logger()

	return log, closer
}
