package policy

import (
	"testing"

	"github.com/NissimBet/meetmylog-back/internal/models"
)

func meetingWith(creator string, members []string, isPublic bool) *models.Meeting {
	users := make([]models.User, 0, len(members))
	for _, id := range members {
		users = append(users, models.User{UserID: id})
	}
	return &models.Meeting{MeetingID: "m-1", CreatorID: creator, Members: users, IsPublic: isPublic}
}

func TestCanRead(t *testing.T) {
	tests := []struct {
		name     string
		meeting  *models.Meeting
		callerID string
		want     bool
	}{
		{"public meeting, any authenticated caller", meetingWith("u1", nil, true), "stranger", true},
		{"creator even if not in members", meetingWith("u1", []string{"u2"}, false), "u1", true},
		{"listed member", meetingWith("u1", []string{"u2", "u3"}, false), "u3", true},
		{"private, not creator, not member", meetingWith("u1", []string{"u2"}, false), "u4", false},
		{"public but unauthenticated caller", meetingWith("u1", nil, true), "", false},
		{"missing meeting", nil, "u1", false},
		{"private meeting with empty members", meetingWith("u1", nil, false), "u2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanRead(tt.meeting, tt.callerID); got != tt.want {
				t.Errorf("CanRead() = %v, want %v", got, tt.want)
			}
		})
	}
}
