package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/repository/mocks"
)

func TestAdminService_GetStats(t *testing.T) {
	content := new(mocks.ContentRepo)
	users := new(mocks.UserRepo)
	consents := new(mocks.ConsentRepo)
	codes := new(mocks.AccessCodeRepo)
	legal := new(mocks.LegalRepo)

	content.On("CountAll", mock.Anything).Return(map[string]int{"services": 4, "unreadMessages": 2}, nil)
	users.On("Count", mock.Anything).Return(12, nil)
	consents.On("Count", mock.Anything).Return(30, nil)
	codes.On("CountValid", mock.Anything).Return(1, nil)
	legal.On("FindAll", mock.Anything, (*model.DocumentType)(nil)).Return([]model.LegalDocument{
		{ID: "a", IsActive: true}, {ID: "b"}, {ID: "c", IsActive: true},
	}, nil)

	stats, err := NewAdminService(content, users, consents, codes, legal).GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Content["services"])
	assert.Equal(t, 12, stats.Users)
	assert.Equal(t, 30, stats.Consents)
	assert.Equal(t, 1, stats.ActiveCodes)
	assert.Equal(t, 3, stats.Legal.Documents)
	assert.Equal(t, 2, stats.Legal.Active)
}
