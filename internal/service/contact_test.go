package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vertexautomation/site-server/internal/errors"
	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/repository/mocks"
)

func TestContactService_Submit(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	repo := new(mocks.ContactRepo)
	mailer := &captureSender{}
	svc := NewContactService(repo, NewRateLimiter(client), mailer, "sales@example.com")

	repo.On("Create", ctx, mock.MatchedBy(func(p model.CreateContactMessageParams) bool {
		return p.Email == "jane@plant.example" && p.Company == nil
	})).Return(&model.ContactMessage{ID: "m1", Name: "Jane", Email: "jane@plant.example", Message: "Need a retrofit"}, nil)

	submit := func() error {
		_, err := svc.Submit(ctx, "203.0.113.7", model.CreateContactMessageParams{
			Name: "Jane", Email: " Jane@Plant.example ", Company: new(string), Message: "Need a retrofit",
		})
		return err
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, submit())
	}
	assert.Equal(t, apperrors.ErrCodeRateLimitExceeded, apperrors.GetCode(submit()))

	require.Len(t, mailer.sent, 3)
	assert.Equal(t, "sales@example.com", mailer.sent[0].To)
	assert.Equal(t, "jane@plant.example", mailer.sent[0].ReplyTo)
}

func TestContactService_Validation(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	repo := new(mocks.ContactRepo)
	svc := NewContactService(repo, NewRateLimiter(client), nil, "")

	_, err := svc.Submit(ctx, "ip", model.CreateContactMessageParams{Name: "J", Email: "nope", Message: "m"})
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))

	_, err = svc.Submit(ctx, "ip", model.CreateContactMessageParams{Name: "J", Email: "j@x.io"})
	assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(err))

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
