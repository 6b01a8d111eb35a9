package policy

import "github.com/NissimBet/meetmylog-back/internal/models"

// CanRead 判定 callerID 是否可以读取会议：公开会议、创建者或成员均可。
// 纯函数，不做任何 I/O；会议是否存在与调用者是否认证由边界层各自判断，
// 这里收到 nil 会议或空 callerID 一律拒绝。
func CanRead(meeting *models.Meeting, callerID string) bool {
	if meeting == nil || callerID == "" {
		return false
	}
	if meeting.IsPublic {
		return true
	}
	// 创建者永远是隐式成员，即使不在成员列表里。
	if callerID == meeting.CreatorID {
		return true
	}
	for _, m := range meeting.Members {
		if callerID == m.UserID {
			return true
		}
	}
	return false
}
