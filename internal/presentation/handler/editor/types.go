package editor

import (
	"time"

	"github.com/freetex/texsync/internal/domain"
)

type participantResponse struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type roomResponse struct {
	RoomID         string                `json:"roomId"`
	Content        string                `json:"content"`
	LastModified   time.Time             `json:"lastModified"`
	LastEditorName string                `json:"lastEditorName,omitempty"`
	Participants   []participantResponse `json:"participants"`
}

func newRoomResponse(doc *domain.Document, participants []domain.Presence) roomResponse {
	resp := roomResponse{
		RoomID:         doc.RoomID,
		Content:        doc.Content,
		LastModified:   doc.LastModified,
		LastEditorName: doc.LastEditorName,
		Participants:   make([]participantResponse, 0, len(participants)),
	}
	for _, p := range participants {
		resp.Participants = append(resp.Participants, participantResponse{
			UserID:   p.UserID,
			UserName: p.UserName,
		})
	}
	return resp
}
