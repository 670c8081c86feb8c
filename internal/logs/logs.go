// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package logs configures the logger shared by the beacon commands.
package logs

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation of the log file.
const (
	MaxSizeMB  = 10
	MaxBackups = 5
)

// New returns a logger writing text to stdout and, when path is not empty,
// to a rotated file at path. The returned closer flushes the file.
func New(path string, verbose bool) (*logrus.Logger, io.Closer) {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "01/02/06 15:04:05"})
	l.SetLevel(logrus.InfoLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	if path == "" {
		l.SetOutput(os.Stdout)
		return l, nopCloser{}
	}
	f := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    MaxSizeMB,
		MaxBackups: MaxBackups,
	}
	l.SetOutput(io.MultiWriter(os.Stdout, f))
	return l, f
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
