// Copyright 2018 Brian Starkey <stark3y@gmail.com>

// Package events records discrete mission events (home set, task changes,
// faults) as one JSON record per line.
package events

import (
	"errors"
	"io"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var ErrNoPath = errors.New("event log path is empty")

// Log is an event sink. A nil *Log discards everything.
type Log struct {
	log zerolog.Logger
	w io.Writer
}

// Open creates a rotating event log file at path.
func Open(path, flightID string) (*Log, error) {
	if path == "" {
		return nil, ErrNoPath
	}

	w := &lumberjack.Logger{
		Filename: path,
		MaxSize: 10, // MB
		MaxBackups: 10,
		Compress: true,
	}

	return New(w, flightID), nil
}

// New writes events to w.
func New(w io.Writer, flightID string) *Log {
	return &Log{
		log: zerolog.New(w).With().Timestamp().Str("flight_id", flightID).Logger(),
		w: w,
	}
}

func (l *Log) Log(header, message string) {
	if l == nil {
		return
	}

	l.log.Log().Str("header", header).Msg(message)
}

func (l *Log) Close() error {
	if l == nil {
		return nil
	}

	if c, ok := l.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
