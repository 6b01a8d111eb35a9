package service

import "errors"

// 业务层通用错误，handler 按错误类型映射 HTTP 状态码。
var (
	ErrUserExists         = errors.New("username or email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrGroupNotFound      = errors.New("group not found")
	ErrMeetingNotFound    = errors.New("meeting not found")
	ErrForbidden          = errors.New("forbidden")
)
