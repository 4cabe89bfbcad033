// Package logging wires the process-wide logrus logger: a prefixed
// console formatter plus an optional rotating file hook.
package logging

import (
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup builds the root logger. logFile may be empty, in which case only
// the console formatter is attached.
func Setup(logFile string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if logFile == "" {
		return log
	}

	writer := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     28,
		Compress:   true,
	}

	log.AddHook(lfshook.NewHook(lfshook.WriterMap{
		logrus.InfoLevel:  writer,
		logrus.WarnLevel:  writer,
		logrus.ErrorLevel: writer,
		logrus.FatalLevel: writer,
	}, &logrus.JSONFormatter{}))

	return log
}
