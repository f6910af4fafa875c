// Copyright 2024 The symbex Authors
// This file is part of the symbex library.
//
// The symbex library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The symbex library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.

// Package log is a small leveled, contextual logger in the log15 shape the
// teacher's own (unretrieved) "github.com/core-coin/go-core/log" package
// uses throughout its codebase — call-site capture via go-stack/stack,
// colour-aware terminal output via mattn/go-colorable and mattn/go-isatty.
// Every long-running component in this engine (the scheduler, the solver
// facade, the harness driver) takes one of these with a handful of
// contextual key/value pairs already bound.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

type Level int

const (
	LvlCrit Level = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Level) String() string {	switch l {
	case LvlCrit:
 return "CRIT"
	case LvlError:
 return "ERROR"
	case LvlWarn:
 return "WARN"
	case LvlInfo:
 return "INFO"
	case LvlDebug:
 return "DEBUG"
	default:
 return "TRACE"
	}
}

var levelColor = map[Level]int{
	LvlCrit: 35,
	LvlError: 31,
	LvlWarn: 33,
	LvlInfo: 32,
	LvlDebug: 36,
	LvlTrace: 90,
}

// Logger is the interface every engine component depends on.
type Logger interface {
	New(ctx...interface{}) Logger
	Trace(msg string, ctx...interface{})
	Debug(msg string, ctx...interface{})
	Info(msg string, ctx...interface{})
	Warn(msg string, ctx...interface{})
	Error(msg string, ctx...interface{})
	Crit(msg string, ctx...interface{})
}

type logger struct {
	ctx []interface{}
}

var (
	root = &logger{}
	mu sync.Mutex
	out io.Writer
	useColor bool
	threshold = LvlInfo
)

func init() {
	if f, ok := interface{}(os.Stderr).(*os.File); ok && isatty.IsTerminal(f.Fd()) {
 out = colorable.NewColorable(f)
 useColor = true
	} else {
 out = os.Stderr
	}
}

// SetOutput redirects every logger's output to w and turns colour off.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	useColor = false
}

// SetLevel sets the minimum level that reaches the output.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	threshold = l
}

// New returns the root logger extended with the given key/value context,
// e.g. log.New("component", "scheduler", "function", name).
func New(ctx...interface{}) Logger {
	return root.New(ctx...)
}

func (l *logger) New(ctx...interface{}) Logger {
	nctx := make([]interface{}, 0, len(l.ctx)+len(ctx))
	nctx = append(nctx, l.ctx...)
	nctx = append(nctx, ctx...)
	return &logger{ctx: nctx}
}

func (l *logger) Trace(msg string, ctx...interface{}) { l.write(LvlTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx...interface{}) { l.write(LvlDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx...interface{}) { l.write(LvlInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx...interface{}) { l.write(LvlWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx...interface{}) { l.write(LvlError, msg, ctx) }
func (l *logger) Crit(msg string, ctx...interface{}) { l.write(LvlCrit, msg, ctx) }

func (l *logger) write(lvl Level, msg string, extra []interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if lvl > threshold {
 return
	}
	ts := time.Now().Format("01-02|15:04:05.000")
	call := stack.Caller(2)
	line := fmt.Sprintf("%s", call)

	var b []byte
	if useColor {
 b = append(b, fmt.Sprintf("\x1b[%dm%-5s\x1b[0m", levelColor[lvl], lvl)...)
	} else {
 b = append(b, fmt.Sprintf("%-5s", lvl)...)
	}
	b = append(b, fmt.Sprintf("[%s] %-40s caller=%s", ts, msg, line)...)

	all := append(append([]interface{}{}, l.ctx...), extra...)
	for i := 0; i+1 < len(all); i += 2 {
 b = append(b, fmt.Sprintf(" %v=%v", all[i], all[i+1])...)
	}
	b = append(b, '\n')
	out.Write(b)
}
