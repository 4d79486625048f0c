package errors

// 공통 에러 코드 정의
const (
	// 일반적인 에러 코드
	ErrInternal        = "INTERNAL"
	ErrNotFound        = "NOT_FOUND"
	ErrInvalidArgument = "INVALID_ARGUMENT"
	ErrUnauthenticated = "UNAUTHENTICATED"
	ErrUnauthorized    = "UNAUTHORIZED"
	ErrConflict        = "CONFLICT"
	ErrTimeout         = "TIMEOUT"
	ErrNotImplemented  = "NOT_IMPLEMENTED"

	// 결제 게이트웨이 관련 에러 코드
	ErrGatewayRejected = "GATEWAY_REJECTED" // 게이트웨이가 요청을 명시적으로 거절함
	ErrUnavailable     = "UNAVAILABLE"      // 저장소 등 의존 시스템이 일시적으로 사용 불가
)
