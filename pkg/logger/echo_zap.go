package logger

import (
	"io"
	"strings"
	"sync"

	"github.com/labstack/gommon/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EchoZapLogger는 echo.Logger를 zap 위에 구현합니다.
// echo 내부 메시지(시작 로그, 바인딩 경고 등)가 애플리케이션 로그와 같은 형식으로 남습니다.
type EchoZapLogger struct {
	mu     sync.RWMutex
	base   *zap.Logger
	sugar  *zap.SugaredLogger
	prefix string
	level  log.Lvl
}

// NewEchoZapLogger는 INFO 레벨의 echo 로거를 생성합니다.
func NewEchoZapLogger(logger *zap.Logger) *EchoZapLogger {
	return &EchoZapLogger{
		base:  logger,
		sugar: logger.Sugar(),
		level: log.INFO,
	}
}

// gommon 레벨을 zap 레벨로 변환합니다
func zapLevel(v log.Lvl) zapcore.Level {
	switch v {
	case log.DEBUG:
		return zapcore.DebugLevel
	case log.WARN:
		return zapcore.WarnLevel
	case log.ERROR:
		return zapcore.ErrorLevel
	case log.OFF:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *EchoZapLogger) enabled(v log.Lvl) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level != log.OFF && v >= l.level
}

func (l *EchoZapLogger) logger() *zap.SugaredLogger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sugar
}

func (l *EchoZapLogger) Output() io.Writer {
	return &zapWriter{logger: l.base, level: zapLevel(l.Level())}
}

// SetOutput 출력 대상은 zap 코어가 결정하므로 무시합니다
func (l *EchoZapLogger) SetOutput(w io.Writer) {}

func (l *EchoZapLogger) Level() log.Lvl {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *EchoZapLogger) SetLevel(v log.Lvl) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = v
}

// SetHeader 헤더 템플릿은 zap 인코더가 대신하므로 무시합니다
func (l *EchoZapLogger) SetHeader(h string) {}

func (l *EchoZapLogger) Prefix() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.prefix
}

// SetPrefix 프리픽스를 zap 로거 이름으로 사용합니다
func (l *EchoZapLogger) SetPrefix(p string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prefix = p
	named := l.base
	if p != "" {
		named = named.Named(p)
	}
	l.sugar = named.Sugar()
}

func (l *EchoZapLogger) Print(i ...interface{}) { l.Info(i...) }

func (l *EchoZapLogger) Printf(format string, args ...interface{}) { l.Infof(format, args...) }

func (l *EchoZapLogger) Printj(j log.JSON) { l.Infoj(j) }

func (l *EchoZapLogger) Debug(i ...interface{}) {
	if l.enabled(log.DEBUG) {
		l.logger().Debug(i...)
	}
}

func (l *EchoZapLogger) Debugf(format string, args ...interface{}) {
	if l.enabled(log.DEBUG) {
		l.logger().Debugf(format, args...)
	}
}

func (l *EchoZapLogger) Debugj(j log.JSON) {
	if l.enabled(log.DEBUG) {
		l.logger().Debugw("echo", jsonFields(j)...)
	}
}

func (l *EchoZapLogger) Info(i ...interface{}) {
	if l.enabled(log.INFO) {
		l.logger().Info(i...)
	}
}

func (l *EchoZapLogger) Infof(format string, args ...interface{}) {
	if l.enabled(log.INFO) {
		l.logger().Infof(format, args...)
	}
}

func (l *EchoZapLogger) Infoj(j log.JSON) {
	if l.enabled(log.INFO) {
		l.logger().Infow("echo", jsonFields(j)...)
	}
}

func (l *EchoZapLogger) Warn(i ...interface{}) {
	if l.enabled(log.WARN) {
		l.logger().Warn(i...)
	}
}

func (l *EchoZapLogger) Warnf(format string, args ...interface{}) {
	if l.enabled(log.WARN) {
		l.logger().Warnf(format, args...)
	}
}

func (l *EchoZapLogger) Warnj(j log.JSON) {
	if l.enabled(log.WARN) {
		l.logger().Warnw("echo", jsonFields(j)...)
	}
}

func (l *EchoZapLogger) Error(i ...interface{}) {
	if l.enabled(log.ERROR) {
		l.logger().Error(i...)
	}
}

func (l *EchoZapLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(log.ERROR) {
		l.logger().Errorf(format, args...)
	}
}

func (l *EchoZapLogger) Errorj(j log.JSON) {
	if l.enabled(log.ERROR) {
		l.logger().Errorw("echo", jsonFields(j)...)
	}
}

// Fatal, Panic 계열은 레벨과 무관하게 항상 기록합니다
func (l *EchoZapLogger) Fatal(i ...interface{}) { l.logger().Fatal(i...) }

func (l *EchoZapLogger) Fatalf(format string, args ...interface{}) {
	l.logger().Fatalf(format, args...)
}

func (l *EchoZapLogger) Fatalj(j log.JSON) { l.logger().Fatalw("echo", jsonFields(j)...) }

func (l *EchoZapLogger) Panic(i ...interface{}) { l.logger().Panic(i...) }

func (l *EchoZapLogger) Panicf(format string, args ...interface{}) {
	l.logger().Panicf(format, args...)
}

func (l *EchoZapLogger) Panicj(j log.JSON) { l.logger().Panicw("echo", jsonFields(j)...) }

func jsonFields(j log.JSON) []interface{} {
	fields := make([]interface{}, 0, len(j)*2)
	for k, v := range j {
		fields = append(fields, k, v)
	}
	return fields
}

// zapWriter는 echo가 Output()에 직접 쓰는 내용을 한 줄씩 zap으로 넘깁니다
type zapWriter struct {
	logger *zap.Logger
	level  zapcore.Level
}

func (w *zapWriter) Write(p []byte) (int, error) {
	if ce := w.logger.Check(w.level, strings.TrimRight(string(p), "\n")); ce != nil {
		ce.Write()
	}
	return len(p), nil
}
