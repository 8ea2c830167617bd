package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// LogrusLogger logrus实现
// 持有 FieldLogger 而不是根 Logger：WithFields 返回的包装必须带着字段走。
type LogrusLogger struct {
	logger logrus.FieldLogger
}

// NewLogrusLogger 创建LogrusLogger
func NewLogrusLogger(level, format, output, path string) (*LogrusLogger, error) {
	log := logrus.New()

	// 设置日志级别
	parseLevel, err := logrus.ParseLevel(level)
	if err != nil {
		parseLevel = logrus.DebugLevel
	}
	log.SetLevel(parseLevel)

	// 设置日志格式
	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	// 设置日志输出
	var writer io.Writer = os.Stdout
	if output == "file" {
		file, err := openLogFile(path)
		if err != nil {
			return nil, err
		}
		writer = io.MultiWriter(os.Stdout, file)
	}
	log.SetOutput(writer)

	return &LogrusLogger{logger: log}, nil
}

func (l *LogrusLogger) Debug(args ...interface{}) { l.logger.Debug(args...) }
func (l *LogrusLogger) Info(args ...interface{})  { l.logger.Info(args...) }
func (l *LogrusLogger) Warn(args ...interface{})  { l.logger.Warn(args...) }
func (l *LogrusLogger) Error(args ...interface{}) { l.logger.Error(args...) }
func (l *LogrusLogger) Fatal(args ...interface{}) { l.logger.Fatal(args...) }

func (l *LogrusLogger) Debugf(format string, args ...interface{}) { l.logger.Debugf(format, args...) }
func (l *LogrusLogger) Infof(format string, args ...interface{})  { l.logger.Infof(format, args...) }
func (l *LogrusLogger) Warnf(format string, args ...interface{})  { l.logger.Warnf(format, args...) }
func (l *LogrusLogger) Errorf(format string, args ...interface{}) { l.logger.Errorf(format, args...) }
func (l *LogrusLogger) Fatalf(format string, args ...interface{}) { l.logger.Fatalf(format, args...) }

func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{logger: l.logger.WithFields(logrus.Fields(fields))}
}

func (l *LogrusLogger) WithField(key string, value interface{}) Logger {
	return &LogrusLogger{logger: l.logger.WithField(key, value)}
}
