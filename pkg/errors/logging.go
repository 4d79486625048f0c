package errors

import (
	"go.uber.org/zap"
)

// LogError는 에러를 코드와 HTTP 상태와 함께 기록합니다.
// 5xx로 매핑되는 코드는 Error, 나머지는 Warn 레벨로 남깁니다.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if err == nil || logger == nil {
		return
	}

	code := CodeOf(err)
	status := ToHTTPStatus(code)
	all := make([]zap.Field, 0, len(fields)+3)
	all = append(all,
		zap.Error(err),
		zap.String("error_code", code),
		zap.Int("http_status", status),
	)
	all = append(all, fields...)

	if status >= 500 {
		logger.Error(msg, all...)
		return
	}
	logger.Warn(msg, all...)
}
