package services

import (
	"context"

	"github.com/localnerve/bizflow/internal/realtime"
)

// SocketCallbacks binds the websocket server to token verification and the application service
func SocketCallbacks(tokens *TokenService, apps *ApplicationService) realtime.Callbacks {
	identityOf := func(s realtime.Session) Identity {
		return Identity{ID: s.UserID, Role: s.Role}
	}
	return realtime.Callbacks{
		Verify: func(token string) (realtime.Session, error) {
			id, err := tokens.Verify(token)
			if err != nil {
				return realtime.Session{}, err
			}
			return realtime.Session{UserID: id.ID, Role: id.Role}, nil
		},
		CanJoinApplication: func(ctx context.Context, s realtime.Session, applicationID string) bool {
			return apps.CanJoinRoom(ctx, identityOf(s), applicationID)
		},
		SaveMessage: func(ctx context.Context, s realtime.Session, applicationID, content string) (interface{}, error) {
			return apps.SaveMessage(ctx, identityOf(s), applicationID, content)
		},
	}
}
