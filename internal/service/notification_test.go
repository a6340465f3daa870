package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/service"
)

func TestNotificationService(t *testing.T) {
	ctx := context.Background()
	repo := new(MockNotificationRepo)
	svc := service.NewNotificationService(repo)

	t.Run("GetNotificationsDefaultsPaging", func(t *testing.T) {
		repo.On("List", ctx, int32(10), int32(20), int32(0)).
			Return([]domain.Notification{{ID: 1, Title: "Application approved"}}, int32(1), nil).Once()

		notes, total, err := svc.GetNotifications(ctx, 10, 0, 0)
		assert.NoError(t, err)
		assert.Len(t, notes, 1)
		assert.Equal(t, int32(1), total)
	})

	t.Run("NotifyIgnoresStoreErrors", func(t *testing.T) {
		repo.On("Create", ctx, mock.MatchedBy(func(n *domain.Notification) bool {
			return n.UserID == 10 && *n.ApplicationID == 7 && n.Title == "Payment received"
		})).Return(errors.New("insert failed")).Once()

		svc.Notify(ctx, 10, 7, "Payment received", "We received KES 1.00", nil)
	})

	repo.AssertExpectations(t)
}
